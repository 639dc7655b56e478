package platform

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
)

// ObjectGateway lists and fetches the entities submitted by centers, and
// deposits artifacts (per-center log files) back onto the platform. It is
// the half of the Platform Gateway (§2) that deals in containers and
// entities rather than table rows.
type ObjectGateway interface {
	// ListChildren enumerates a container's immediate entity children.
	ListChildren(ctx context.Context, containerID string) ([]Entity, error)

	// FetchEntity returns full entity metadata and ensures Path is set to a
	// local copy of its content.
	FetchEntity(ctx context.Context, id string) (Entity, error)

	// CheckReadable reports whether the caller can read containerID,
	// returning a *errs.PlatformFatal if not.
	CheckReadable(ctx context.Context, containerID string) error

	// CreateFolder creates (or returns the existing) child folder named name
	// under parentID, returning its id.
	CreateFolder(ctx context.Context, parentID, name string) (string, error)

	// UploadArtifact stores the file at localPath under folderID, returning
	// the new entity's id.
	UploadArtifact(ctx context.Context, folderID, localPath string) (string, error)

	// SetAnnotation attaches a single annotation to an entity or container.
	SetAnnotation(ctx context.Context, id, key, value string) error
}

// FSGateway is an ObjectGateway backed by a local directory tree, standing
// in for the remote platform's container hierarchy. Each container is a
// directory; each entity is a file within it, identified by its path
// relative to RootDir.
type FSGateway struct {
	RootDir string

	annotations map[string]map[string]string // containerID/entityID -> annotation key -> value, in-memory only
}

// NewFSGateway returns a FSGateway rooted at rootDir. rootDir is created if
// it does not already exist.
func NewFSGateway(rootDir string) (*FSGateway, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, &errs.PlatformFatal{Err: fmt.Errorf("create root dir: %w", err)}
	}
	return &FSGateway{
		RootDir:     rootDir,
		annotations: make(map[string]map[string]string),
	}, nil
}

func (g *FSGateway) containerPath(containerID string) string {
	return filepath.Join(g.RootDir, containerID)
}

func (g *FSGateway) ListChildren(ctx context.Context, containerID string) ([]Entity, error) {
	dir := g.containerPath(containerID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.PlatformFatal{Err: fmt.Errorf("container %s not found: %w", containerID, err)}
		}
		return nil, &errs.PlatformTransient{Err: err}
	}

	var out []Entity
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ent, err := g.statEntity(containerID, e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *FSGateway) statEntity(containerID, name string) (Entity, error) {
	full := filepath.Join(g.containerPath(containerID), name)
	info, err := os.Stat(full)
	if err != nil {
		return Entity{}, &errs.PlatformTransient{Err: err}
	}
	sum, err := md5Sum(full)
	if err != nil {
		return Entity{}, &errs.PlatformTransient{Err: err}
	}
	id := containerID + "/" + name
	return Entity{
		ID:          id,
		Name:        name,
		MD5:         sum,
		Size:        info.Size(),
		CreatedBy:   "unknown",
		ModifiedBy:  "unknown",
		ModifiedOn:  info.ModTime(),
		Path:        full,
		Annotations: g.annotations[id],
	}, nil
}

func (g *FSGateway) FetchEntity(ctx context.Context, id string) (Entity, error) {
	containerID, name := splitID(id)
	ent, err := g.statEntity(containerID, name)
	if err != nil {
		return Entity{}, err
	}
	if _, err := os.Stat(ent.Path); err != nil {
		return Entity{}, &errs.PlatformFatal{Err: fmt.Errorf("entity %s has no content: %w", id, err)}
	}
	return ent, nil
}

func (g *FSGateway) CheckReadable(ctx context.Context, containerID string) error {
	if _, err := os.Stat(g.containerPath(containerID)); err != nil {
		return &errs.PlatformFatal{Err: fmt.Errorf("cannot read container %s: %w", containerID, err)}
	}
	return nil
}

func (g *FSGateway) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	id := name
	if parentID != "" {
		id = parentID + "/" + name
	}
	if err := os.MkdirAll(g.containerPath(id), 0o755); err != nil {
		return "", &errs.PlatformTransient{Err: err}
	}
	return id, nil
}

func (g *FSGateway) UploadArtifact(ctx context.Context, folderID, localPath string) (string, error) {
	dst := filepath.Join(g.containerPath(folderID), filepath.Base(localPath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", &errs.PlatformTransient{Err: err}
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", &errs.PlatformTransient{Err: err}
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", &errs.PlatformTransient{Err: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", &errs.PlatformTransient{Err: err}
	}
	return folderID + "/" + filepath.Base(localPath), nil
}

func (g *FSGateway) SetAnnotation(ctx context.Context, id, key, value string) error {
	if g.annotations[id] == nil {
		g.annotations[id] = make(map[string]string)
	}
	g.annotations[id][key] = value
	return nil
}

func splitID(id string) (containerID, name string) {
	idx := lastSlash(id)
	if idx < 0 {
		return "", id
	}
	return id[:idx], id[idx+1:]
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func md5Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
