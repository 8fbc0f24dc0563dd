package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// FixtureTarget is where fixtures are written. Vectors and Embedding are
// optional; without them chunks are only indexed for full-text search.
type FixtureTarget struct {
	Chunks      driven.ChunkStore
	Memberships driven.MembershipStore
	Users       driven.UserStore
	Vectors     driven.VectorIndex
	Embedding   driven.EmbeddingService
}

// Fixtures is the YAML document accepted by `fixtures load`.
type Fixtures struct {
	People      []domain.Person `yaml:"people"`
	Teams       []domain.Team   `yaml:"teams"`
	Projects    []fixtureProject    `yaml:"projects"`
	Memberships []fixtureMembership `yaml:"memberships"`
	Assignments []fixtureAssignment `yaml:"assignments"`
	Users       []fixtureUser       `yaml:"users"`
	Items       []fixtureItem       `yaml:"items"`
}

type fixtureProject struct {
	ID     string `yaml:"id"`
	Parent string `yaml:"parent"`
	Name   string `yaml:"name"`
	State  string `yaml:"state"`
}

type fixtureMembership struct {
	Team   string `yaml:"team"`
	Person string `yaml:"person"`
	Role   string `yaml:"role"`
}

type fixtureAssignment struct {
	Project string `yaml:"project"`
	Team    string `yaml:"team"`
}

type fixtureUser struct {
	ID     string   `yaml:"id"`
	Person string   `yaml:"person"`
	Scopes []string `yaml:"scopes"`
}

type fixtureItem struct {
	ID          string    `yaml:"id"`
	Modality    string    `yaml:"modality"`
	Title       string    `yaml:"title"`
	Tags        []string  `yaml:"tags"`
	Size        int64     `yaml:"size"`
	Sensitivity string    `yaml:"sensitivity"`
	Project     string    `yaml:"project"`
	Creator     string    `yaml:"creator"`
	People      []string  `yaml:"people"`
	Status      string    `yaml:"status"`
	Popularity  *float64  `yaml:"popularity"`
	Created     time.Time `yaml:"created"`
	Content     string    `yaml:"content"`
	Chunks      []string  `yaml:"chunks"`
}

// FixtureStats counts what a load wrote.
type FixtureStats struct {
	Items    int
	Chunks   int
	Embedded int
}

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Load development data",
}

var fixturesLoadCmd = &cobra.Command{
	Use:   "load <file.yaml>",
	Short: "Load people, teams, projects, users and items from YAML",
	Long: `Loads a YAML fixture file into the local store. Items without an id get a
generated one. Each entry under chunks becomes one chunk; content is a
shorthand for a single chunk. When an embedding provider is configured the
chunks of STORED items are also embedded into the vector index.`,
	Args: cobra.ExactArgs(1),
	RunE: runFixturesLoad,
}

func init() {
	fixturesCmd.AddCommand(fixturesLoadCmd)
	rootCmd.AddCommand(fixturesCmd)
}

func runFixturesLoad(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	if err := ensureRuntime(cmd); err != nil {
		return err
	}
	if fixtureTarget == nil {
		return errors.New("storage not configured")
	}

	stats, err := LoadFixtures(cmd.Context(), fixtureTarget, &fx)
	if err != nil {
		return err
	}
	cmd.Printf("Loaded %d item(s), %d chunk(s); embedded %d chunk(s).\n", stats.Items, stats.Chunks, stats.Embedded)
	return nil
}

// LoadFixtures writes fx into target. Membership data is written before
// items so foreign keys resolve.
func LoadFixtures(ctx context.Context, target *FixtureTarget, fx *Fixtures) (FixtureStats, error) {
	var stats FixtureStats
	if err := loadMemberships(ctx, target, fx); err != nil {
		return stats, err
	}

	var toEmbed []domain.Chunk
	for i := range fx.Items {
		item, chunks, err := fx.Items[i].build()
		if err != nil {
			return stats, fmt.Errorf("item %d: %w", i, err)
		}
		if err := target.Chunks.SaveItem(ctx, item); err != nil {
			return stats, fmt.Errorf("save item %s: %w", item.ID, err)
		}
		if err := target.Chunks.SaveChunks(ctx, chunks); err != nil {
			return stats, fmt.Errorf("save chunks for %s: %w", item.ID, err)
		}
		stats.Items++
		stats.Chunks += len(chunks)
		if item.IndexingStatus == domain.StatusStored {
			toEmbed = append(toEmbed, chunks...)
		}
	}

	if target.Vectors == nil || target.Embedding == nil || len(toEmbed) == 0 {
		return stats, nil
	}
	n, err := embedChunks(ctx, target, toEmbed)
	stats.Embedded = n
	return stats, err
}

func loadMemberships(ctx context.Context, target *FixtureTarget, fx *Fixtures) error {
	if target.Memberships != nil {
		for i := range fx.People {
			if err := target.Memberships.SavePerson(ctx, &fx.People[i]); err != nil {
				return fmt.Errorf("save person %s: %w", fx.People[i].ID, err)
			}
		}
		for i := range fx.Teams {
			if err := target.Memberships.SaveTeam(ctx, &fx.Teams[i]); err != nil {
				return fmt.Errorf("save team %s: %w", fx.Teams[i].ID, err)
			}
		}
		for _, p := range fx.Projects {
			project := &domain.Project{ID: p.ID, ParentID: p.Parent, Name: p.Name, State: domain.ProjectState(p.State)}
			if project.State == "" {
				project.State = domain.ProjectActive
			}
			if err := target.Memberships.SaveProject(ctx, project); err != nil {
				return fmt.Errorf("save project %s: %w", p.ID, err)
			}
		}
		for _, m := range fx.Memberships {
			role := domain.TeamRole(m.Role)
			if _, ok := role.ProjectRole(); !ok {
				return fmt.Errorf("%w: membership %s/%s has unknown role %q", domain.ErrInvalidInput, m.Team, m.Person, m.Role)
			}
			if err := target.Memberships.SaveMembership(ctx, domain.TeamMembership{TeamID: m.Team, PersonID: m.Person, Role: role}); err != nil {
				return fmt.Errorf("save membership %s/%s: %w", m.Team, m.Person, err)
			}
		}
		for _, a := range fx.Assignments {
			if err := target.Memberships.AssignTeam(ctx, domain.ProjectAssignment{ProjectID: a.Project, TeamID: a.Team}); err != nil {
				return fmt.Errorf("assign team %s to %s: %w", a.Team, a.Project, err)
			}
		}
	}

	if target.Users != nil {
		for _, u := range fx.Users {
			if err := target.Users.SaveUser(ctx, &domain.User{ID: u.ID, PersonID: u.Person, Scopes: u.Scopes}); err != nil {
				return fmt.Errorf("save user %s: %w", u.ID, err)
			}
		}
	}
	return nil
}

func (f *fixtureItem) build() (*domain.Item, []domain.Chunk, error) {
	item := &domain.Item{
		ID:             f.ID,
		Modality:       domain.Modality(strings.ToLower(f.Modality)),
		Title:          f.Title,
		Tags:           f.Tags,
		Size:           f.Size,
		ProjectID:      f.Project,
		CreatorID:      f.Creator,
		People:         f.People,
		IndexingStatus: domain.IndexingStatus(strings.ToUpper(f.Status)),
		Popularity:     1,
		CreatedAt:      f.Created,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Modality == "" {
		item.Modality = domain.ModalityDocument
	}
	if !item.Modality.IsValid() {
		return nil, nil, fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidInput, f.Modality)
	}
	if item.IndexingStatus == "" {
		item.IndexingStatus = domain.StatusStored
	}
	if !item.IndexingStatus.IsValid() {
		return nil, nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, f.Status)
	}
	if f.Sensitivity != "" {
		level, err := domain.ParseSensitivity(f.Sensitivity)
		if err != nil {
			return nil, nil, err
		}
		item.Sensitivity = level
	}
	if f.Popularity != nil {
		item.Popularity = *f.Popularity
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	texts := f.Chunks
	if len(texts) == 0 && f.Content != "" {
		texts = []string{f.Content}
	}
	if item.Size == 0 {
		for _, text := range texts {
			item.Size += int64(len(text))
		}
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.ChunkFromItem(item, fmt.Sprintf("%s#%d", item.ID, i), text, i)
	}
	return item, chunks, nil
}

// embedBatchSize bounds a single embedding request.
const embedBatchSize = 64

func embedChunks(ctx context.Context, target *FixtureTarget, chunks []domain.Chunk) (int, error) {
	embedded := 0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Content
		}
		vecs, err := target.Embedding.EmbedBatch(ctx, texts)
		if err != nil {
			return embedded, fmt.Errorf("embed chunks: %w", err)
		}
		for i := range batch {
			if err := target.Vectors.Upsert(ctx, batch[i], vecs[i]); err != nil {
				return embedded, fmt.Errorf("index chunk %s: %w", batch[i].ID, err)
			}
			embedded++
		}
	}
	return embedded, nil
}
