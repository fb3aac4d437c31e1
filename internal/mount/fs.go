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

// Package mount exposes a flat, read-only FUSE directory of named byte
// ranges within a disk.Disk. It never parses a filesystem itself; callers
// (typically the fsmount CLI command, backed by an external FAT reader)
// hand it the file listing to serve.
package mount

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
)

// FileEntry names one byte range a mounted directory will expose as a
// regular file.
type FileEntry struct {
	Name   string
	Offset uint64
	Size   uint64
}

type diskFS struct {
	r io.ReaderAt

	mtx     sync.RWMutex
	entries map[string]FileEntry
}

func (d *diskFS) Root() (fs.Node, error) {
	return &rootDir{fs: d}, nil
}

// rootDir implements both fs.Node and fs.HandleReadDirAller; the mounted
// tree is always exactly one flat directory.
type rootDir struct {
	fs *diskFS
}

func (*rootDir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *rootDir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	d.fs.mtx.RLock()
	defer d.fs.mtx.RUnlock()

	if e, ok := d.fs.entries[name]; ok {
		return sliceFile{
			r:    io.NewSectionReader(d.fs.r, int64(e.Offset), int64(e.Size)),
			size: e.Size,
		}, nil
	}
	return nil, fuse.ENOENT
}

func (d *rootDir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	d.fs.mtx.RLock()
	defer d.fs.mtx.RUnlock()

	dirEntries := make([]fuse.Dirent, 0, len(d.fs.entries))
	for _, e := range d.fs.entries {
		dirEntries = append(dirEntries, fuse.Dirent{Name: e.Name, Type: fuse.DT_File})
	}
	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name < dirEntries[j].Name
	})
	for i := range dirEntries {
		dirEntries[i].Inode = uint64(i + 1)
	}
	return dirEntries, nil
}

// sliceFile implements both fs.Node and fs.HandleReader over a bounded
// window of the mounted disk.
type sliceFile struct {
	r    io.ReaderAt
	size uint64
}

func (f sliceFile) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = f.size
	a.Mtime = time.Now()
	return nil
}

func (f sliceFile) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	size := int64(req.Size)
	offset := req.Offset

	if offset >= int64(f.size) {
		resp.Data = nil
		return nil
	}
	if offset+size > int64(f.size) {
		size = int64(f.size) - offset
	}

	buf := make([]byte, size)
	n, err := f.r.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return err
	}
	resp.Data = buf[:n]
	return nil
}
