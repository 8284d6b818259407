package update

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-resty/resty/v2"
)

const (
	checkTimeout    = 8 * time.Second
	downloadTimeout = 2 * time.Minute
)

// Release describes the published version relative to the running one
type Release struct {
	Current string
	Latest  string
	Newer   bool
}

// Updater checks for and installs new releases
type Updater struct {
	VersionURL string // plain-text file holding the latest version
	ReleaseURL string // directory of per-platform binaries

	client *resty.Client
}

// New returns an Updater with its own HTTP client
func New(versionURL, releaseURL string) *Updater {
	client := resty.New()
	client.SetHeader("user-agent", "autoform-updater")
	return &Updater{VersionURL: versionURL, ReleaseURL: releaseURL, client: client}
}

// Check fetches the published version and compares it with current
func (u *Updater) Check(ctx context.Context, current string) (Release, error) {
	r := Release{Current: current}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	res, err := u.client.R().
		SetContext(ctx).
		Get(u.VersionURL)
	if err != nil {
		return r, fmt.Errorf("fetch version: %w", err)
	}
	if res.IsError() {
		return r, fmt.Errorf("fetch version: %s", res.Status())
	}

	r.Latest = strings.TrimSpace(res.String())
	if r.Latest == "" {
		return r, fmt.Errorf("fetch version: empty response")
	}
	r.Newer = Newer(r.Latest, current)
	return r, nil
}

// Newer reports whether latest should replace current. Versions that do not
// parse as semver are compared for equality only.
func Newer(latest, current string) bool {
	lv, lerr := semver.NewVersion(latest)
	cv, cerr := semver.NewVersion(current)
	if lerr != nil || cerr != nil {
		return strings.TrimSpace(latest) != strings.TrimSpace(current)
	}
	return lv.GreaterThan(cv)
}

// AssetName is the release binary for this platform
func AssetName() string {
	name := fmt.Sprintf("autoform_%s_%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}

// Apply downloads the release binary and replaces the executable at path
func (u *Updater) Apply(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".autoform-update-*")
	if err != nil {
		return fmt.Errorf("stage update: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	url := strings.TrimSuffix(u.ReleaseURL, "/") + "/" + AssetName()
	res, err := u.client.R().
		SetContext(ctx).
		SetOutput(tmpPath).
		Get(url)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	if res.IsError() {
		return fmt.Errorf("download %s: %s", url, res.Status())
	}

	if err := os.Chmod(tmpPath, 0o755); err != nil {
		return fmt.Errorf("stage update: %w", err)
	}

	// Windows cannot overwrite a running executable, but it can rename it
	if runtime.GOOS == "windows" {
		old := path + ".old"
		_ = os.Remove(old)
		if err := os.Rename(path, old); err != nil {
			return fmt.Errorf("replace executable: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace executable: %w", err)
	}
	return nil
}

// Relaunch starts path with args as a detached process and returns at once
func Relaunch(path string, args []string) error {
	cmd := exec.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("relaunch: %w", err)
	}
	return cmd.Process.Release()
}
