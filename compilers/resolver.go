package compilers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Resolver locates (downloading and caching if necessary) a pinned compiler
// binary for a given language and version.
type Resolver struct {
	solcBinRepo string
	solcJSRepo  string
	vyperRepo   string
	binDir      string
	client      *http.Client
}

// NewResolver builds a Resolver rooted at binDir, pulling release lists from
// solcBinRepo/vyperRepo. solcJSRepo is kept for the Emscripten (solc-js)
// fallback used when no native binary is published for the host platform.
func NewResolver(binDir, solcBinRepo, solcJSRepo, vyperRepo string) *Resolver {
	return &Resolver{
		solcBinRepo: solcBinRepo,
		solcJSRepo:  solcJSRepo,
		vyperRepo:   vyperRepo,
		binDir:      binDir,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// solcBinList is the relevant subset of solc-bin's list.json.
type solcBinList struct {
	Builds []struct {
		Version  string `json:"version"`
		Path     string `json:"path"`
		SHA256   string `json:"sha256"`
		LongVer  string `json:"longVersion"`
	} `json:"builds"`
}

func (r *Resolver) platformDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "linux-amd64", nil
	case "darwin":
		return "macosx-amd64", nil
	case "windows":
		return "windows-amd64", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
	}
}

func (r *Resolver) binaryPath(language Language, version string) string {
	ext := ""
	if runtime.GOOS == "windows" {
		ext = ".exe"
	}
	prefix := "solc"
	if language == LanguageVyper {
		prefix = "vyper"
	}
	return filepath.Join(r.binDir, fmt.Sprintf("%s-%s%s", prefix, version, ext))
}

// Resolve returns the local path of the pinned binary for language/version,
// downloading it into the shared cache directory if absent. Concurrent
// resolvers racing on the same version serialize via an flock'd lock file so
// only one process downloads; the rest wait and then observe the cached file.
func (r *Resolver) Resolve(ctx context.Context, language Language, version string) (string, error) {
	path := r.binaryPath(language, version)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(r.binDir, 0o755); err != nil {
		return "", fmt.Errorf("creating compiler cache dir: %w", err)
	}

	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening compiler download lock: %w", err)
	}
	defer lockFile.Close()

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		return "", fmt.Errorf("acquiring compiler download lock: %w", err)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	// Another resolver may have finished the download while we waited on the lock.
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	zap.L().Info("downloading compiler binary",
		zap.String("language", string(language)),
		zap.String("version", version))

	switch language {
	case LanguageSolidity, LanguageYul:
		return path, r.downloadSolc(ctx, version, path)
	case LanguageVyper:
		return path, r.downloadVyper(ctx, version, path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedVersion, language)
	}
}

func (r *Resolver) downloadSolc(ctx context.Context, version, dest string) error {
	platform, err := r.platformDir()
	if err != nil {
		return err
	}

	listURL := fmt.Sprintf("%s/%s/list.json", r.solcBinRepo, platform)
	build, err := r.lookupSolcBuild(ctx, listURL, version)
	if err != nil {
		if platform != "emscripten-wasm32" {
			zap.L().Warn("no native solc build for platform, falling back to solc-js",
				zap.String("version", version), zap.Error(err))
			listURL = fmt.Sprintf("%s/list.json", r.solcJSRepo)
			build, err = r.lookupSolcBuild(ctx, listURL, version)
		}
		if err != nil {
			return err
		}
	}

	downloadURL := fmt.Sprintf("%s/%s", filepath.Dir(listURL), build.Path)
	return r.fetchAndVerify(ctx, downloadURL, dest, build.SHA256)
}

func (r *Resolver) lookupSolcBuild(ctx context.Context, listURL, version string) (*struct {
	Version string
	Path    string
	SHA256  string
}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list.json status %d", ErrDownloadFailed, resp.StatusCode)
	}

	var list solcBinList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding solc build list: %w", err)
	}

	for _, b := range list.Builds {
		if b.Version == version {
			return &struct {
				Version string
				Path    string
				SHA256  string
			}{b.Version, b.Path, b.SHA256}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s not listed at %s", ErrUnsupportedVersion, version, listURL)
}

func (r *Resolver) downloadVyper(ctx context.Context, version, dest string) error {
	arch := "linux"
	switch runtime.GOOS {
	case "darwin":
		arch = "darwin"
	case "windows":
		arch = "windows"
	}
	downloadURL := fmt.Sprintf("%s/download/v%s/vyper.%s", r.vyperRepo, version, arch)
	return r.fetchAndVerify(ctx, downloadURL, dest, "")
}

// fetchAndVerify streams url into dest, verifying its sha256 against
// wantSHA256 when non-empty (vyper's GitHub releases carry no published
// per-binary checksum, so verification is skipped only there).
func (r *Resolver) fetchAndVerify(ctx context.Context, url, dest, wantSHA256 string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d for %s", ErrDownloadFailed, resp.StatusCode, url)
	}

	tmp := dest + ".download"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("creating compiler binary file: %w", err)
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, hasher), resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	f.Close()

	if wantSHA256 != "" {
		sum := hex.EncodeToString(hasher.Sum(nil))
		// solc-bin lists sha256 as "0x"-prefixed hex.
		want := wantSHA256
		if len(want) > 2 && want[:2] == "0x" {
			want = want[2:]
		}
		if sum != want {
			os.Remove(tmp)
			return fmt.Errorf("%w: got %s want %s", ErrChecksumMismatch, sum, want)
		}
	}

	return os.Rename(tmp, dest)
}
