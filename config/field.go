package config

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/where"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
)

// UnknownKeyError is returned for a key that is not registered.
type UnknownKeyError struct {
	Key string
	// Closest is the registered key with the smallest edit distance.
	Closest string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key %s, did you mean %s?", e.Key, e.Closest)
}

// Lookup returns the registered field of k.
func Lookup(k string) (Field, error) {
	if field, ok := Default[k]; ok {
		return field, nil
	}

	closest := lo.MinBy(lo.Keys(Default), func(a, b string) bool {
		return levenshtein.Distance(k, a) < levenshtein.Distance(k, b)
	})
	return Field{}, &UnknownKeyError{Key: k, Closest: closest}
}

// Parse converts raw command-line values to the type of the field default.
func (f *Field) Parse(raw []string) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: no value given", f.Key)
	}

	switch f.Value.(type) {
	case string:
		return raw[0], nil
	case int:
		n, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s: invalid integer %q", f.Key, raw[0])
		}
		return n, nil
	case bool:
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s: invalid boolean %q", f.Key, raw[0])
		}
		return b, nil
	case []string:
		return raw, nil
	default:
		return nil, fmt.Errorf("%s: unsupported type %s", f.Key, f.typeName())
	}
}

// File is the path of the config file.
func File() string {
	return filepath.Join(where.Config(), constant.Anistream+".toml")
}
