package os

import (
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
)

var ErrNotExist = os.ErrNotExist

func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func CheckCreateDir(path string) error {
	if !Exists(path) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// ExpectTermination returns a channel that fires once on SIGINT or SIGTERM.
func ExpectTermination() chan struct{} {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{}, 1)
	go func() {
		<-signals
		done <- struct{}{}
	}()
	return done
}

func WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
