package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E120",
			wantMsg: "Invalid configuration file",
			wantCat: CategoryConfig,
		},
		{
			name:    "store error",
			code:    "E200",
			wantMsg: "Store closed",
			wantCat: CategoryStore,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
		})
	}
}

func TestWrapAndIs(t *testing.T) {
	cause := stderrors.New("disk on fire")
	err := New("E120").WithDetail("reading postboard.json").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !stderrors.Is(err, New("E120")) {
		t.Error("errors.Is should match the same code")
	}
	if stderrors.Is(err, New("E122")) {
		t.Error("errors.Is should not match a different code")
	}
	if got := err.Error(); got != "E120: Invalid configuration file: reading postboard.json" {
		t.Errorf("Error() = %q", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E300") != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New("E122")
	if got := FromError(orig, "E300"); got != orig {
		t.Error("FromError should keep an existing PostboardError")
	}

	plain := stderrors.New("boom")
	got := FromError(plain, "E300")
	if got.Code != "E300" || got.Wrapped != plain {
		t.Errorf("FromError = %+v", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E122").
		WithDetail("log.level must be one of debug, info, warn, error").
		WithSuggestion("Set log.level to info").
		Wrap(stderrors.New("got \"loud\""))

	out := err.Format()
	for _, want := range []string{
		"ERROR E122: Invalid configuration value",
		"log.level must be one of",
		"Cause: got \"loud\"",
		"Hint: Set log.level to info",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	if got := err.FormatCompact(); got != `E122: Invalid configuration value (got "loud")` {
		t.Errorf("FormatCompact() = %q", got)
	}
	if got := Newf(CategoryCLI, "bad %s", "flag").Format(); !strings.Contains(got, "ERROR: bad flag") {
		t.Errorf("Format() without code = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("aaa bbb ccc", 7)
	if len(lines) != 2 || lines[0] != "aaa bbb" || lines[1] != "ccc" {
		t.Errorf("wrapText = %q", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText of empty text should be nil")
	}
}
