package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/validate"
)

// runValidateSingleFile implements `validate-single-file FILEPATH... CENTER
// [--filetype T] [--parentid ID] [--format-registry-packages PKG...]`
// (§6): run §4.3 against one submission, exit 0 iff valid, and — when valid
// and --parentid is set — upload the files to that container.
func runValidateSingleFile(args []string, g globals) error {
	fs := flag.NewFlagSet("validate-single-file", flag.ContinueOnError)
	filetype := fs.String("filetype", "", "explicit filetype, skipping name-based detection")
	parentID := fs.String("parentid", "", "container to upload the files to if validation passes")
	formatPackages := fs.StringSlice("format-registry-packages", nil, "extension packages to load formats from")
	if err := fs.Parse(args); err != nil {
		return &usageError{msg: err.Error()}
	}

	positional := fs.Args()
	if len(positional) < 2 {
		return usageErrorf("usage: validate-single-file FILEPATH... CENTER")
	}
	center := positional[len(positional)-1]
	paths := positional[:len(positional)-1]
	if len(paths) > 2 {
		return usageErrorf("at most two files per submission unit, got %d", len(paths))
	}

	reg, err := buildRegistry(resolveFormatPackages(*formatPackages, g.Project))
	if err != nil {
		return err
	}
	helper := validate.NewHelper(reg)

	entities := make([]platform.Entity, len(paths))
	for i, p := range paths {
		ent, err := localEntity(p)
		if err != nil {
			return err
		}
		if *filetype != "" {
			ent.Annotations = map[string]string{"filetype": *filetype}
		}
		entities[i] = ent
	}

	ctx := context.Background()
	unit := validate.SubmissionUnit{Entities: entities, Center: center}
	if *filetype != "" {
		unit.ExplicitFiletype = *filetype
	}

	result, err := helper.ValidateSingle(ctx, unit)
	if err != nil {
		return err
	}

	fmt.Print(result.Report)

	if !result.Valid {
		os.Exit(1)
	}

	if *parentID != "" {
		objects, err := platform.NewFSGateway(filepath.Dir(os.TempDir()))
		if err != nil {
			return err
		}
		for _, p := range paths {
			if _, err := objects.UploadArtifact(ctx, *parentID, p); err != nil {
				return fmt.Errorf("upload %s to %s: %w", p, *parentID, err)
			}
		}
	}
	return nil
}

// localEntity stats and checksums a local file directly, standing in for
// the FetchEntity call a real submission unit would go through once it is
// already sitting on the platform (§4.2's Read operates on entities, not
// bare paths, so the CLI's one-off local file still needs to look like
// one).
func localEntity(path string) (platform.Entity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return platform.Entity{}, fmt.Errorf("stat %s: %w", path, err)
	}
	sum, err := md5File(path)
	if err != nil {
		return platform.Entity{}, fmt.Errorf("checksum %s: %w", path, err)
	}
	return platform.Entity{
		ID:         path,
		Name:       filepath.Base(path),
		MD5:        sum,
		Size:       info.Size(),
		ModifiedOn: info.ModTime(),
		Path:       path,
	}, nil
}

func md5File(path string) (string, error) {
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
