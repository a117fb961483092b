/*
Copyright 2026 The Aidb Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package archive serializes a blob.Driver's entire keyspace to a
// gzip-compressed tar stream and back, in the style of perkeep's
// misc/release/zip-source.go: walking a tree of named entries into an
// archive format and reading one back with archive/tar+compress/gzip.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
)

// driver is the subset of blob.Driver archive needs; declared locally to
// avoid an import of internal/blob purely for the interface (archive is
// reusable against any keyed-bytes backend).
type driver interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	List(ctx context.Context, prefix string, recursive bool) ([]string, error)
}

// Save lists every key in d and writes a gzip-compressed tar stream to w,
// one entry per key, named after the key, containing the key's raw bytes.
func Save(ctx context.Context, d driver, w io.Writer) error {
	keys, err := d.List(ctx, "", true)
	if err != nil {
		return fmt.Errorf("archive: list: %w", err)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, key := range keys {
		data, err := d.Read(ctx, key)
		if err != nil {
			tw.Close()
			gz.Close()
			return fmt.Errorf("archive: read %q: %w", key, err)
		}
		hdr := &tar.Header{
			Name: key,
			Mode: 0o600,
			Size: int64(len(data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			tw.Close()
			gz.Close()
			return fmt.Errorf("archive: write header for %q: %w", key, err)
		}
		if _, err := tw.Write(data); err != nil {
			tw.Close()
			gz.Close()
			return fmt.Errorf("archive: write body for %q: %w", key, err)
		}
	}

	if err := tw.Close(); err != nil {
		gz.Close()
		return fmt.Errorf("archive: close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("archive: close gzip writer: %w", err)
	}
	return nil
}

// Load reads a stream produced by Save and writes every entry back
// through d.Write, keyed by its tar entry name.
func Load(ctx context.Context, d driver, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("archive: open gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive: read tar header: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return fmt.Errorf("archive: read body for %q: %w", hdr.Name, err)
		}
		if err := d.Write(ctx, hdr.Name, data); err != nil {
			return fmt.Errorf("archive: write %q: %w", hdr.Name, err)
		}
	}
}
