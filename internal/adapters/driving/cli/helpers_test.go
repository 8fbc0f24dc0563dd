package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/services"
)

type mockSearchService struct {
	results     []domain.SearchResult
	err         error
	lastSubject domain.Subject
	lastReq     domain.SearchRequest
	calls       int
}

func (m *mockSearchService) Search(_ context.Context, subject domain.Subject, req domain.SearchRequest) ([]domain.SearchResult, error) {
	m.calls++
	m.lastSubject = subject
	m.lastReq = req
	return m.results, m.err
}

// testEnv is a fully in-memory set of ports installed into the package vars.
type testEnv struct {
	search   *mockSearchService
	chunks   *memory.ChunkStore
	members  *memory.MembershipStore
	users    *memory.UserStore
	access   *services.AccessControlEngine
	settings *services.SettingsService
}

var testCreated = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestServices installs an environment with one team-backed user
// (alice, contributor on "apollo"), one superadmin and a few items.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		search:   &mockSearchService{},
		chunks:   memory.NewChunkStore(),
		members:  memory.NewMembershipStore(),
		users:    memory.NewUserStore(),
		settings: services.NewSettingsService(memory.NewConfigStore(), nil),
	}
	env.access = services.NewAccessControlEngine(env.members)

	require.NoError(t, env.members.SavePerson(ctx, &domain.Person{ID: "p-alice", Name: "Alice"}))
	require.NoError(t, env.members.SaveTeam(ctx, &domain.Team{ID: "t-eng", Name: "Engineering"}))
	require.NoError(t, env.members.SaveProject(ctx, &domain.Project{ID: "apollo", Name: "Apollo", State: domain.ProjectActive}))
	require.NoError(t, env.members.SaveMembership(ctx, domain.TeamMembership{TeamID: "t-eng", PersonID: "p-alice", Role: domain.TeamRoleMember}))
	require.NoError(t, env.members.AssignTeam(ctx, domain.ProjectAssignment{ProjectID: "apollo", TeamID: "t-eng"}))
	require.NoError(t, env.users.SaveUser(ctx, &domain.User{ID: "alice", PersonID: "p-alice"}))
	require.NoError(t, env.users.SaveUser(ctx, &domain.User{ID: "root", Scopes: []string{domain.ScopeSuperadmin}}))

	saveTestItem(t, env, &domain.Item{
		ID: "runbook", Modality: domain.ModalityDocument, Title: "Deploy runbook",
		Sensitivity: domain.SensitivityBasic, ProjectID: "apollo", CreatorID: "bob",
		Tags: []string{"ops"}, IndexingStatus: domain.StatusStored, Popularity: 1, CreatedAt: testCreated,
	}, "Roll back with the previous image tag.", "Page the on-call lead.")
	saveTestItem(t, env, &domain.Item{
		ID: "salaries", Modality: domain.ModalityDocument, Title: "Salary bands",
		Sensitivity: domain.SensitivityConfidential, ProjectID: "apollo",
		IndexingStatus: domain.StatusStored, Popularity: 1, CreatedAt: testCreated,
	}, "Band table.")

	restore := installPorts(env)
	t.Cleanup(restore)
	return env
}

func saveTestItem(t *testing.T, env *testEnv, item *domain.Item, contents ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.chunks.SaveItem(ctx, item))
	chunks := make([]domain.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = domain.ChunkFromItem(item, fmt.Sprintf("%s#%d", item.ID, i), c, i)
	}
	require.NoError(t, env.chunks.SaveChunks(ctx, chunks))
}

func installPorts(env *testEnv) func() {
	prev := wiring
	resetPorts()
	wiring = Wiring{}

	settingsService = env.settings
	searchService = env.search
	itemService = services.NewItemService(env.chunks, env.access)
	accessService = env.access
	userStore = env.users
	fixtureTarget = &FixtureTarget{Chunks: env.chunks, Memberships: env.members, Users: env.users}

	return func() {
		resetPorts()
		wiring = prev
	}
}

func resetPorts() {
	settingsService = nil
	searchService = nil
	itemService = nil
	accessService = nil
	userStore = nil
	fixtureTarget = nil
	watchConfig = nil
	identityID = ""
	runtime = nil
}

// withWiring replaces the wiring and clears any ports built from it.
func withWiring(w Wiring) func() {
	prev := wiring
	resetPorts()
	wiring = w
	return func() {
		wiring = prev
		resetPorts()
	}
}

// executeCommand runs the root command with args and returns combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag in the tree to its default so tests do
// not leak state through package-level flag variables.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// withInput feeds interactive commands from s.
func withInput(s string) func() {
	prev := settingsInput
	settingsInput = strings.NewReader(s)
	return func() { settingsInput = prev }
}
