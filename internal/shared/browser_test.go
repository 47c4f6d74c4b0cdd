package shared

import (
	"errors"
	"os/exec"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCommand
	t.Cleanup(func() {
		getRuntime, startCommand = origRuntime, origStart
	})

	var launched []string
	startCommand = func(cmd *exec.Cmd) error {
		launched = cmd.Args
		return nil
	}

	tc := []struct {
		name     string
		goos     string
		url      string
		wantArgs []string
		wantErr  error
	}{
		{name: "linux", goos: "linux", url: "https://cdn.example.com/v.mp4", wantArgs: []string{"xdg-open", "https://cdn.example.com/v.mp4"}},
		{name: "darwin", goos: "darwin", url: "http://localhost/v.mp4", wantArgs: []string{"open", "http://localhost/v.mp4"}},
		{name: "windows", goos: "windows", url: "https://x.test/a", wantArgs: []string{"cmd", "/c", "start", "https://x.test/a"}},
		{name: "rejects file scheme", goos: "linux", url: "file:///etc/passwd", wantErr: ErrInvalidArgument},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			launched = nil
			getRuntime = func() string { return tt.goos }

			err := OpenBrowser(tt.url)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if launched != nil {
					t.Error("nothing should be launched on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenBrowser() error = %v", err)
			}
			if len(launched) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", launched, tt.wantArgs)
			}
			for i := range launched {
				if launched[i] != tt.wantArgs[i] {
					t.Errorf("args = %v, want %v", launched, tt.wantArgs)
					break
				}
			}
		})
	}

	t.Run("unsupported platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("https://x.test"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
