package mini

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/anistream/anistream/key"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

var errInterrupted = errors.New("interrupted")

type prompter interface {
	Input(message string) (string, error)
	Select(message string, options []string) (int, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Input(message string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Input{Message: message}, &answer)
	return answer, translate(err)
}

func (surveyPrompter) Select(message string, options []string) (int, error) {
	var answer int
	err := survey.AskOne(&survey.Select{
		Message:  message,
		Options:  options,
		PageSize: max(viper.GetInt(key.MiniSearchLimit), 10),
	}, &answer)
	return answer, translate(err)
}

func translate(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errInterrupted
	}
	return err
}

type choice struct {
	label string
	do    func() error
}

// menu asks for one of choices and runs it.
func (m *mini) menu(message string, choices ...choice) error {
	labels := lo.Map(choices, func(c choice, _ int) string {
		return c.label
	})

	i, err := m.prompt.Select(message, labels)
	if err != nil {
		return err
	}
	return choices[i].do()
}

func (m *mini) back() choice {
	return choice{label: "Back", do: func() error {
		m.previousState()
		return nil
	}}
}

func (m *mini) quit() choice {
	return choice{label: "Quit", do: func() error {
		m.setState(quitState)
		return nil
	}}
}
