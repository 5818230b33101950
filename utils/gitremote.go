package utils

import (
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
)

// DetectRepository infers "owner/name" from the origin remote of the
// repository containing dir. Used when no --repo flag is given.
func DetectRepository(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return "", errors.Wrap(err, "no git repository found")
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return "", errors.Wrap(err, "no origin remote found")
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.New("origin remote has no url")
	}

	return ParseRemoteURL(urls[0])
}

// ParseRemoteURL extracts "owner/name" from the common GitHub remote
// forms, e.g. git@github.com:owner/name.git and
// https://github.com/owner/name.git
func ParseRemoteURL(url string) (string, error) {
	s := strings.TrimSuffix(url, ".git")

	if idx := strings.Index(s, "github.com"); idx >= 0 {
		s = s[idx+len("github.com"):]
		s = strings.TrimLeft(s, ":/")
	} else {
		return "", errors.Errorf("remote '%s' is not a github.com url", url)
	}

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", errors.Errorf("unable to parse owner/name from remote '%s'", url)
	}

	return parts[0] + "/" + parts[1], nil
}
