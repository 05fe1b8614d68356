package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/google/uuid"
)

var (
	ErrNoFreeVersion = errors.New("no free versioned output directory")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

const loaderSuffix = "_loader.xlsx"

// SanitizeFilename keeps the base name, turns spaces into underscores and drops
// anything outside [A-Za-z0-9._-]. Names that end up empty get a random name.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeChars.ReplaceAllString(name, "")
	if name == "" || name == "." || name == ".." {
		return "file_" + strings.ReplaceAll(uuid.NewString(), "-", "") + ".bin"
	}
	if r := []rune(name); len(r) > config.MaxFilenameRune {
		name = string(r[:config.MaxFilenameRune])
	}
	return name
}

// safeStem reduces a filename to a directory/file friendly stem.
func safeStem(name, fallback string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	stem = unsafeChars.ReplaceAllString(stem, "_")
	stem = strings.Trim(stem, "._-")
	if stem == "" {
		return fallback
	}
	return stem
}

// SafeAgreementBaseName derives the output directory base from a stored
// agreement filename of the form <id>__<original>.
func SafeAgreementBaseName(storedName, agreementId string) string {
	original := filepath.Base(storedName)
	if agreementId != "" {
		original = strings.TrimPrefix(original, agreementId+"__")
	}
	return safeStem(original, "agreement")
}

// PlanFileNames maps standard filenames to loader filenames in batch order.
// The first occurrence of a stem wins; later ones get _2, _3, ...
func PlanFileNames(standardNames []string) []string {
	planned := make([]string, len(standardNames))
	taken := make(map[string]bool, len(standardNames))
	for i, name := range standardNames {
		stem := safeStem(stripStoredPrefix(name), "standard")
		candidate := stem + loaderSuffix
		for n := 2; taken[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s_loader_%d.xlsx", stem, n)
		}
		taken[strings.ToLower(candidate)] = true
		planned[i] = candidate
	}
	return planned
}

// stripStoredPrefix removes the NNN__ ordering prefix of stored standards.
func stripStoredPrefix(name string) string {
	name = filepath.Base(name)
	if before, after, ok := strings.Cut(name, "__"); ok && before != "" && strings.Trim(before, "0123456789") == "" {
		return after
	}
	return name
}

// ReserveDir creates root/base, or the first free root/base_vN, and returns it.
// os.Mkdir fails on existing paths, so two callers never get the same directory.
func ReserveDir(root, base string) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	for v := 1; v <= config.MaxOutputVersions; v++ {
		name := base
		if v > 1 {
			name = fmt.Sprintf("%s_v%d", base, v)
		}
		dir := filepath.Join(root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoFreeVersion, base)
}
