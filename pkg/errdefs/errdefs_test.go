package errdefs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{"with_path", NewConfigError("watch-list", "pages.txt", errors.New("boom")), "watch-list pages.txt: boom"},
		{"without_path", NewConfigError("config", "", errors.New("bad timeout")), "config: bad timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigError_IsAndUnwrap(t *testing.T) {
	err := fmt.Errorf("loading: %w", NewConfigError("snapshot", "checksum.csv", os.ErrPermission))

	if !IsConfig(err) {
		t.Error("expected wrapped ConfigError to match ErrConfig")
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("expected cause to be reachable through Unwrap")
	}

	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatal("errors.As failed")
	}
	if ce.Resource != "snapshot" {
		t.Errorf("Resource = %q, want snapshot", ce.Resource)
	}
}

func TestIsConfig_OtherErrors(t *testing.T) {
	if IsConfig(errors.New("plain")) {
		t.Error("plain error should not be a config error")
	}
	if IsConfig(nil) {
		t.Error("nil should not be a config error")
	}
	if !strings.Contains(ErrConfig.Error(), "configuration") {
		t.Errorf("unexpected sentinel text %q", ErrConfig.Error())
	}
}
