package gitsource

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// LocalPath maps a repository URL to a checkout directory under baseDir.
// Both https URLs and scp-style git@host:path addresses are accepted.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http" || parsed.Scheme == "file") {
		host := parsed.Host
		if host == "" {
			host = "local"
		}
		return filepath.Join(baseDir, host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	userHost, repoPath, ok := strings.Cut(repoURL, ":")
	if ok && strings.Contains(userHost, "@") {
		_, host, _ := strings.Cut(userHost, "@")
		return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
