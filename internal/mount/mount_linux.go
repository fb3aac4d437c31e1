//go:build linux
// +build linux

// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package mount

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	osutil "github.com/arturkow2000/diskutil/pkg/util/os"
)

// Mount serves entries as a flat read-only directory at mountpoint, reading
// file contents from r, until a termination signal is received and the
// filesystem is successfully unmounted.
func Mount(mountpoint string, r io.ReaderAt, entries []FileEntry) error {
	created, err := osutil.EnsureDir(mountpoint, true)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	if created {
		defer os.Remove(mountpoint)
	}

	c, err := fuse.Mount(mountpoint)
	if err != nil {
		return err
	}
	defer c.Close()

	byName := make(map[string]FileEntry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	fsys := &diskFS{r: r, entries: byName}

	go func() {
		srv := fusefs.New(c, nil)
		if err := srv.Serve(fsys); err != nil {
			log.Fatalf("fuse serve error: %v", err)
		}
	}()
	return waitForUnmount(mountpoint)
}

func waitForUnmount(mountpoint string) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	log.Println("waiting for termination signal to unmount")

	const maxUnmountRetries = 3
	attempts := 0
	for sig := range sigc {
		log.Printf("received signal %v, attempting unmount of %s", sig, mountpoint)

		if err := fuse.Unmount(mountpoint); err == nil {
			log.Println("unmounted successfully")
			return nil
		} else if attempts++; attempts >= maxUnmountRetries {
			return fmt.Errorf("mount: unmount of %s failed after %d attempts: %w", mountpoint, attempts, err)
		}
	}
	return nil
}

