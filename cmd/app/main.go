package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/sowilo/internal"
	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/frontmatter"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/notecrypt"
	"github.com/starford/sowilo/internal/publisher"
	"github.com/starford/sowilo/internal/status"
	"github.com/starford/sowilo/internal/storage"
	pkgconfig "github.com/starford/sowilo/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err == nil {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bootstrap(cmd *cli.Command) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.Bootstrap(cfg)
}

// encFile mirrors the sidecar layout written next to encrypted notes.
type encFile struct {
	Ciphertext string          `json:"ciphertext"`
	IV         string          `json:"iv"`
	Salt       string          `json:"salt"`
	Hash       string          `json:"hash,omitempty"`
	Meta       models.NoteMeta `json:"meta,omitempty"`
}

// readBatch loads every note under dir into a publish batch, passing
// encrypted sidecars through untouched.
func readBatch(dir string) ([]models.Note, error) {
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, err
	}
	infos, err := store.List()
	if err != nil {
		return nil, err
	}
	notes := make([]models.Note, 0, len(infos))
	for _, info := range infos {
		data, err := store.Read(info.Path)
		if err != nil {
			return nil, err
		}
		if info.Sidecar {
			var ef encFile
			if err := json.Unmarshal(data, &ef); err != nil {
				return nil, fmt.Errorf("parse %s: %w", info.Path, err)
			}
			notes = append(notes, models.Note{
				RelativePath: strings.TrimSuffix(info.Path, storage.SidecarExt),
				Encrypted:    true,
				Ciphertext:   ef.Ciphertext,
				IV:           ef.IV,
				Salt:         ef.Salt,
				Meta:         ef.Meta,
				Hash:         ef.Hash,
				Mtime:        info.Mtime.UnixMilli(),
			})
			continue
		}
		notes = append(notes, models.Note{
			RelativePath: info.Path,
			Content:      string(data),
			Mtime:        info.Mtime.UnixMilli(),
		})
	}
	return notes, nil
}

// readNoteFile loads a single note given as a CLI argument. The publish path
// is the argument itself for relative paths, the base name otherwise.
func readNoteFile(name string) (models.Note, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return models.Note{}, err
	}
	info, err := os.Stat(name)
	if err != nil {
		return models.Note{}, err
	}
	rel := filepath.ToSlash(filepath.Clean(name))
	if filepath.IsAbs(name) || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(name)
	}
	if strings.HasSuffix(rel, storage.SidecarExt) {
		var ef encFile
		if err := json.Unmarshal(data, &ef); err != nil {
			return models.Note{}, fmt.Errorf("parse %s: %w", name, err)
		}
		return models.Note{
			RelativePath: strings.TrimSuffix(rel, storage.SidecarExt),
			Encrypted:    true,
			Ciphertext:   ef.Ciphertext,
			IV:           ef.IV,
			Salt:         ef.Salt,
			Meta:         ef.Meta,
			Hash:         ef.Hash,
			Mtime:        info.ModTime().UnixMilli(),
		}, nil
	}
	return models.Note{
		RelativePath: rel,
		Content:      string(data),
		Mtime:        info.ModTime().UnixMilli(),
	}, nil
}

// encryptBatch converts every plain note in the batch into an encrypted one,
// lifting listing metadata out of the front matter before the plaintext is
// sealed.
func encryptBatch(notes []models.Note, key string) ([]models.Note, error) {
	for i, n := range notes {
		if n.Encrypted {
			continue
		}
		fm, _ := frontmatter.Parse([]byte(n.Content))
		meta := models.NoteMeta{
			Author:   frontmatter.StringField(fm, "author"),
			Category: frontmatter.StringField(fm, "category"),
			Date:     frontmatter.StringField(fm, "date"),
		}
		if meta.Category == "" {
			if tags := frontmatter.ListField(fm, "tags"); len(tags) > 0 {
				meta.Category = tags[0]
			}
		}
		payload, err := notecrypt.Encrypt(n.Content, key)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", n.RelativePath, err)
		}
		notes[i] = models.Note{
			RelativePath: n.RelativePath,
			Encrypted:    true,
			Ciphertext:   payload.Ciphertext,
			IV:           payload.IV,
			Salt:         payload.Salt,
			Hash:         payload.Hash,
			Meta:         meta,
			Mtime:        n.Mtime,
		}
	}
	return notes, nil
}

func publishAction(ctx context.Context, cmd *cli.Command) error {
	app, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	req := publisher.PublishRequest{
		Tenant: cmd.String("tenant"),
		Theme:  cmd.String("theme"),
	}
	if dir := cmd.String("dir"); dir != "" {
		notes, err := readBatch(dir)
		if err != nil {
			return err
		}
		req.Notes = notes
	}
	for _, name := range cmd.Args().Slice() {
		n, err := readNoteFile(name)
		if err != nil {
			return err
		}
		req.Notes = append(req.Notes, n)
	}
	if key := cmd.String("encrypt-key"); key != "" {
		req.Notes, err = encryptBatch(req.Notes, key)
		if err != nil {
			return err
		}
	}
	if scPath := cmd.String("site-config"); scPath != "" {
		data, err := os.ReadFile(scPath)
		if err != nil {
			return err
		}
		req.ConfigText = string(data)
	}

	res, err := app.Service.Publish(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("published %d notes to %s\n", len(res.Notes), res.SiteRoot)
	for _, rn := range res.Notes {
		fmt.Printf("  %-40s %s\n", rn.RelativePath, rn.URL)
	}
	return nil
}

func removeAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("usage: remove <path>...")
	}
	app, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Service.Remove(ctx, cmd.String("tenant"), paths)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d paths, %d notes remain\n", len(res.Removed), len(res.Notes))
	return nil
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	app, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ledger, err := app.Service.GetStatus(ctx, cmd.String("tenant"))
	if err != nil {
		return err
	}

	dir := cmd.String("dir")
	if dir == "" {
		paths := make([]string, 0, len(ledger))
		for p := range ledger {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Printf("%-40s %s\n", p, ledger[p].URL)
		}
		return nil
	}

	// Classify each local note against the ledger.
	notes, err := readBatch(dir)
	if err != nil {
		return err
	}
	for _, n := range notes {
		hash := n.Hash
		if hash == "" {
			if n.Encrypted {
				hash = checksum.SumEncrypted(n.Ciphertext, n.IV, n.Salt)
			} else {
				hash = checksum.Sum([]byte(n.Content))
			}
		}
		var rec *models.StatusRecord
		if r, ok := ledger[n.RelativePath]; ok {
			rec = &r
		}
		fmt.Printf("%-40s %s\n", n.RelativePath, status.Classify(hash, rec, nil))
	}
	return nil
}

func buildAction(ctx context.Context, cmd *cli.Command) error {
	app, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Service.BuildStored(ctx, cmd.String("tenant"))
	if err != nil {
		return err
	}
	fmt.Printf("built %d notes into %s\n", len(res.Notes), res.SiteRoot)
	return nil
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := []internal.Option{internal.WithConfig(cfg)}
	if tenant := cmd.String("tenant"); tenant != "" {
		opts = append(opts, internal.WithTenant(tenant))
	}
	return internal.Run(ctx, opts...)
}

func metaAction(_ context.Context, cmd *cli.Command) error {
	file := cmd.String("file")
	if file == "" {
		return fmt.Errorf("usage: meta --file <note.md> [--set key=value]... [--unset key]...")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	fmText, body := frontmatter.Split(data)
	mapping, err := frontmatter.ParseMapping(fmText)
	if err != nil {
		return err
	}

	sets := cmd.StringSlice("set")
	unsets := cmd.StringSlice("unset")
	if len(sets) == 0 && len(unsets) == 0 {
		for _, key := range mapping.Keys() {
			if v, ok := mapping.Get(key); ok {
				fmt.Printf("%s: %s\n", key, v)
			} else {
				fmt.Printf("%s: %s\n", key, strings.Join(mapping.GetList(key), ", "))
			}
		}
		return nil
	}

	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q, want key=value", kv)
		}
		if key == "tags" {
			mapping.SetList(key, strings.Split(value, ","))
			continue
		}
		mapping.Set(key, value)
	}
	for _, key := range unsets {
		mapping.Remove(key)
	}

	encoded, err := mapping.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, []byte(frontmatter.Join(encoded, body)), 0o644); err != nil {
		return err
	}
	fmt.Printf("updated %s\n", file)
	return nil
}

func encryptAction(_ context.Context, cmd *cli.Command) error {
	in := cmd.String("in")
	key := cmd.String("key")
	if in == "" || key == "" {
		return fmt.Errorf("usage: encrypt --in <note.md> --key <passphrase>")
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	payload, err := notecrypt.Encrypt(string(data), key)
	if err != nil {
		return err
	}
	out := cmd.String("out")
	if out == "" {
		out = in + storage.SidecarExt
	}
	encoded, err := json.MarshalIndent(encFile{
		Ciphertext: payload.Ciphertext,
		IV:         payload.IV,
		Salt:       payload.Salt,
		Hash:       payload.Hash,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, encoded, 0o600); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func main() {
	tenantFlag := &cli.StringFlag{
		Name:    "tenant",
		Aliases: []string{"t"},
		Usage:   "Tenant identity (multi mode only)",
	}

	cmd := &cli.Command{
		Name:  "sowilo",
		Usage: "Versioned-note static site publisher with tenant namespaces and encrypted pass-through",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "publish",
				Usage:     "Publish a directory or list of notes and rebuild the site",
				ArgsUsage: "[file...]",
				Action:    publishAction,
				Flags: []cli.Flag{
					tenantFlag,
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Directory of notes to publish"},
					&cli.StringFlag{Name: "site-config", Usage: "Site config YAML to install for the tenant"},
					&cli.StringFlag{Name: "theme", Usage: "Theme preset to apply"},
					&cli.StringFlag{Name: "encrypt-key", Usage: "Encrypt every plain note in the batch with this passphrase"},
				},
			},
			{
				Name:      "remove",
				Usage:     "Unpublish notes and rebuild the site without them",
				ArgsUsage: "<path>...",
				Action:    removeAction,
				Flags:     []cli.Flag{tenantFlag},
			},
			{
				Name:   "status",
				Usage:  "Show the publish ledger, or classify a local directory against it",
				Action: statusAction,
				Flags: []cli.Flag{
					tenantFlag,
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Local notes to classify"},
				},
			},
			{
				Name:   "build",
				Usage:  "Rebuild the site from stored notes",
				Action: buildAction,
				Flags:  []cli.Flag{tenantFlag},
			},
			{
				Name:   "watch",
				Usage:  "Rebuild continuously as stored notes change",
				Action: watchAction,
				Flags:  []cli.Flag{tenantFlag},
			},
			{
				Name:   "meta",
				Usage:  "Show or edit a note's front matter in place",
				Action: metaAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Note file to edit"},
					&cli.StringSliceFlag{Name: "set", Usage: "Set a field (key=value, repeatable; tags take a comma list)"},
					&cli.StringSliceFlag{Name: "unset", Usage: "Remove a field (repeatable)"},
				},
			},
			{
				Name:   "encrypt",
				Usage:  "Encrypt a note into a sidecar for private publishing",
				Action: encryptAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Note file to encrypt"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Sidecar output path"},
					&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Encryption passphrase"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
