package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// The Resource type wraps a streamable local file or a remote http/https
// resource such as a tree container, a ray stream or an fbuf.
type Resource struct {
	io.ReadCloser
	url *url.URL

	// Size in bytes if known in advance; -1 otherwise.
	size int64
}

// Returns the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns the lower-case extension of the resource path including the dot.
func (r *Resource) Ext() string {
	return strings.ToLower(filepath.Ext(r.url.Path))
}

// Returns true if the Resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Read the remaining resource contents and close it.
func (r *Resource) ReadAll() ([]byte, error) {
	defer r.Close()

	var (
		data []byte
		err  error
	)
	if r.size > 0 {
		data = make([]byte, r.size)
		_, err = io.ReadFull(r, data)
	} else {
		data, err = io.ReadAll(r)
	}
	if err != nil {
		return nil, fmt.Errorf("resource: could not read '%s': %s", r.Path(), err)
	}
	return data, nil
}

// Create a new Resource data stream. If relTo is specified and pathToResource
// does not define a scheme, then the path to the new Resource will be generated
// by concatenating the base path of relTo and pathToResource.
//
// The caller must make sure to close the returned Resource to prevent mem leaks.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	return NewResourceContext(context.Background(), pathToResource, relTo)
}

// Create a new Resource data stream. Remote resources are fetched using a
// request bound to ctx.
func NewResourceContext(ctx context.Context, pathToResource string, relTo *Resource) (*Resource, error) {
	// Replace backslashes with forward slashes and try parsing as a URL
	url, err := url.Parse(strings.Replace(pathToResource, `\`, `/`, -1))
	if err != nil {
		return nil, err
	}

	// If this is a relative url, clone parent url and adjust its path
	if url.Scheme == "" && relTo != nil && !filepath.IsAbs(url.Path) {
		path := url.Path
		url, _ = url.Parse(relTo.url.String())
		prefix := url.Path
		if url.Scheme == "" {
			prefix, err = filepath.Abs(relTo.url.String())
			if err != nil {
				return nil, fmt.Errorf("resource: could not detect abs path for %s; %s", relTo.url.String(), err.Error())
			}
		}
		url.Path = filepath.Dir(prefix) + "/" + path
	}

	res := &Resource{url: url, size: -1}
	switch url.Scheme {
	case "":
		f, err := os.Open(filepath.Clean(url.Path))
		if err != nil {
			return nil, err
		}
		if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
			res.size = info.Size()
		}
		res.ReadCloser = f
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("resource: could not fetch '%s': %s", url.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("resource: could not fetch '%s': status %d", url.String(), resp.StatusCode)
		}
		res.size = resp.ContentLength
		res.ReadCloser = resp.Body
	default:
		return nil, fmt.Errorf("resource: unsupported scheme '%s'", url.Scheme)
	}

	return res, nil
}

// Create a resource from a reader.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	url, _ := url.Parse(name)
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        url,
		size:       -1,
	}
}

// Open a resource and read all of its contents.
func ReadAll(pathToResource string) ([]byte, error) {
	res, err := NewResource(pathToResource, nil)
	if err != nil {
		return nil, err
	}
	return res.ReadAll()
}

// Write data to a local file, replacing it if it already exists. Remote
// paths are rejected.
func WriteFile(pathToResource string, data []byte) error {
	if url, err := url.Parse(pathToResource); err == nil && url.Scheme != "" && len(url.Scheme) > 1 {
		return fmt.Errorf("resource: can not write to '%s': only local files are supported", pathToResource)
	}
	if err := os.WriteFile(pathToResource, data, 0644); err != nil {
		return fmt.Errorf("resource: could not write '%s': %s", pathToResource, err)
	}
	return nil
}
