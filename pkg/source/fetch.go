package source

import (
	"fmt"
	"net/url"

	"github.com/cavaliercoder/grab"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	oss "github.com/sobelfarm/sobelfarm/pkg/os"
)

func isRemote(path string) bool {
	u, err := url.Parse(path)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch downloads a remote video into the cache dir and returns the local path.
// Complete files already in the cache are not downloaded again.
func Fetch(address, cache string, log *logger.Logger) (string, error) {
	if err := oss.CheckCreateDir(cache); err != nil {
		return "", err
	}
	req, err := grab.NewRequest(cache, address)
	if err != nil {
		return "", fmt.Errorf("couldn't make request URL: %v, %w", address, err)
	}
	resp := grab.NewClient().Do(req)
	if err = resp.Err(); err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	log.Info().Msgf("Downloaded %s", resp.Filename)
	return resp.Filename, nil
}
