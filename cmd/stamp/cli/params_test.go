// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"
)

func TestBindFlags_TypesAndDefaults(t *testing.T) {
	type shared struct {
		Verbose bool `flag:"verbose,v" desc:"debug logging"`
	}
	var params struct {
		shared
		Name     string        `flag:"name" desc:"name" default:"widget"`
		Length   int           `flag:"length" desc:"length" default:"12"`
		Timeout  time.Duration `flag:"timeout" desc:"timeout" default:"30s"`
		Packages []string      `flag:"package,p" desc:"packages"`
		Ignored  string
	}

	flagSet := FlagsFromParams("test", &params)
	if params.Name != "widget" || params.Length != 12 || params.Timeout != 30*time.Second {
		t.Errorf("defaults = %+v", params)
	}
	if flagSet.Lookup("ignored") != nil {
		t.Error("untagged field was bound")
	}

	err := flagSet.Parse([]string{"-v", "--length", "16", "-p", "a", "--package", "b,c", "--timeout", "1m"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !params.Verbose || params.Length != 16 || params.Timeout != time.Minute {
		t.Errorf("parsed = %+v", params)
	}
	if strings.Join(params.Packages, ",") != "a,b,c" {
		t.Errorf("packages = %v", params.Packages)
	}
}

func TestBindFlags_Errors(t *testing.T) {
	var notPointer struct{}
	if err := BindFlags(notPointer, nil); err == nil {
		t.Error("expected error for non-pointer params")
	}

	var unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	if err := BindFlags(&unsupported, FlagsFromParams("x", &struct{}{})); err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Errorf("err = %v", err)
	}

	var badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault, FlagsFromParams("y", &struct{}{})); err == nil {
		t.Error("expected error for unparseable default")
	}
}

func TestFlagsFromParams_PanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	FlagsFromParams("bad", "not a struct")
}
