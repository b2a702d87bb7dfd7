package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"excelviz/adapters/excel"
	"excelviz/adapters/postgres"
	"excelviz/domain/core"
	"excelviz/internal/migration"
	"excelviz/internal/settings"
	"excelviz/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// legacyFile is the settings file name of directory-per-project storage
const legacyFile = "chart_settings.json"

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <database_url> <user_projects_dir>")
	}

	databaseURL := os.Args[1]
	projectsDir := os.Args[2]

	log.Printf("Starting import from %s to database", projectsDir)

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	repo := postgres.NewSettingsRepository(db)

	files, err := findSettingsFiles(projectsDir)
	if err != nil {
		log.Fatalf("Failed to find settings files: %v", err)
	}
	log.Printf("Found %d project directories to import", len(files))

	imported, skipped := 0, 0
	for _, file := range files {
		if err := importProject(ctx, repo, projectsDir, file); err != nil {
			log.Printf("Skipped %s: %v", file, err)
			skipped++
			continue
		}
		imported++
	}

	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

// importProject registers the directory of file as a project of the user that
// owns it, then stores its settings. Project ids derive from the path, so a
// rerun updates the same rows.
func importProject(ctx context.Context, repo *postgres.SettingsRepository, root, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	doc, err := settings.Unmarshal(data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(file)
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return core.NewValidationError("path", "must be <user>/<project>/"+legacyFile)
	}

	key := core.ProjectKey{
		UserID:    core.UserID(parts[0]),
		ProjectID: core.ProjectID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(filepath.ToSlash(rel))).String()),
	}
	project := &ports.Project{
		Key:      key,
		Name:     parts[1],
		FileName: findSheet(dir, doc.FileName),
		Location: dir,
	}
	if err := repo.Register(ctx, project); err != nil {
		return err
	}
	if err := repo.Save(ctx, key, doc); err != nil {
		return err
	}
	log.Printf("Imported %d chart(s) from %s as %s", len(doc.Charts), rel, key)
	return nil
}

// findSettingsFiles returns every <user>/<project>/chart_settings.json, ignoring backups
func findSettingsFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.Name() == legacyFile {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// findSheet returns the saved file name if it is in dir, else the first sheet there
func findSheet(dir, saved string) string {
	if saved != "" {
		candidate := filepath.Join(dir, filepath.Base(saved))
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := excel.FormatFromName(e.Name()); err == nil {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}
