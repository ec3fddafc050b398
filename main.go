// Package main is the entry point for anistream.
package main

import (
	"github.com/anistream/anistream/cmd"
	"github.com/anistream/anistream/config"
	"github.com/anistream/anistream/internal/cache"
	"github.com/anistream/anistream/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	go cache.CollectGarbage()

	cmd.Execute()
}
