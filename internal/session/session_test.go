package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuistot-app/backend/internal/types"
)

type mockInference struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	onCall   func()
}

func (m *mockInference) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	hook := m.onCall
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return m.response, m.err
}

func (m *mockInference) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockImages struct {
	url string
	err error
}

func (m *mockImages) GenerateRecipeImage(ctx context.Context, title string) (string, error) {
	return m.url, m.err
}

type mockRecipeStore struct {
	mu      sync.Mutex
	saved   []types.Recipe
	updated []types.Recipe
	listed  []types.Recipe
	calls   int
}

func (m *mockRecipeStore) SaveRecipe(ctx context.Context, userID string, r types.Recipe) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r)
	return fmt.Sprintf("store-%d", len(m.saved)), nil
}

func (m *mockRecipeStore) UpdateRecipe(ctx context.Context, userID string, r types.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, r)
	return nil
}

func (m *mockRecipeStore) ListChatRecipes(ctx context.Context, userID, chatID string) ([]types.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.listed, nil
}

type mockChatStore struct {
	mu      sync.Mutex
	created []types.Chat
	history []types.Chat
}

func (m *mockChatStore) CreateChat(ctx context.Context, userID, title string) (types.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat := types.Chat{
		ID:        fmt.Sprintf("chat-%d", len(m.created)+1),
		Title:     title,
		CreatedAt: time.Now(),
	}
	m.created = append(m.created, chat)
	return chat, nil
}

func (m *mockChatStore) ListChats(ctx context.Context, userID string) ([]types.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history, nil
}

type mockProfileStore struct {
	mu      sync.Mutex
	remote  *types.KitchenSnapshot
	upserts int
}

func (m *mockProfileStore) UpsertKitchenState(ctx context.Context, userID string, snap types.KitchenSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remote = &snap
	m.upserts++
	return nil
}

func (m *mockProfileStore) GetKitchenState(ctx context.Context, userID string) (*types.KitchenSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remote, nil
}

func (m *mockProfileStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

type memorySnapshots struct {
	mu    sync.Mutex
	store map[string]types.KitchenSnapshot
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{store: make(map[string]types.KitchenSnapshot)}
}

func (m *memorySnapshots) Save(ctx context.Context, key string, snap types.KitchenSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = snap
	return nil
}

func (m *memorySnapshots) Load(ctx context.Context, key string) (*types.KitchenSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap, ok := m.store[key]; ok {
		return &snap, nil
	}
	return nil, nil
}

type fixture struct {
	inference *mockInference
	images    *mockImages
	recipes   *mockRecipeStore
	chats     *mockChatStore
	profiles  *mockProfileStore
	snapshots *memorySnapshots
}

func newFixture() *fixture {
	return &fixture{
		inference: &mockInference{},
		images:    &mockImages{url: "https://img.example.com/dish.png"},
		recipes:   &mockRecipeStore{},
		chats:     &mockChatStore{},
		profiles:  &mockProfileStore{},
		snapshots: newMemorySnapshots(),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Inference: f.inference,
		Images:    f.images,
		Recipes:   f.recipes,
		Chats:     f.chats,
		Profiles:  f.profiles,
		Snapshots: f.snapshots,
	}
}

func (f *fixture) guestSession(t *testing.T) *Session {
	t.Helper()
	s := New(context.Background(), f.deps(), "guest-key", "")
	s.debounceWait = 5 * time.Millisecond
	return s
}

func (f *fixture) userSession(t *testing.T) *Session {
	t.Helper()
	s := New(context.Background(), f.deps(), "user-1", "user-1")
	s.debounceWait = 5 * time.Millisecond
	return s
}

const ideaListResponse = `[
  {"title": "Chicken Basquaise", "description": "Pepper stew", "mealType": "Main",
   "prepTime": "40 mins", "servings": "2", "difficulty": "Moderate", "cuisine": "French"},
  {"title": "Poulet Roti", "description": "Roast chicken", "mealType": "Main",
   "prepTime": "90 mins", "servings": "4", "difficulty": "Easy", "cuisine": "French"}
]`

func selectChicken(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.SetIngredients(context.Background(), []types.IngredientSelection{
		{Name: "Chicken", Qty: "200g"},
	}))
}

func TestSetIngredientsUnknownRejected(t *testing.T) {
	f := newFixture()
	s := f.guestSession(t)

	err := s.SetIngredients(context.Background(), []types.IngredientSelection{
		{Name: "Unicorn", Qty: "1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unicorn")
	assert.Empty(t, s.State().Ingredients)
}

func TestSetIngredientsDedupes(t *testing.T) {
	f := newFixture()
	s := f.guestSession(t)

	require.NoError(t, s.SetIngredients(context.Background(), []types.IngredientSelection{
		{Name: "Chicken", Qty: "200g"},
		{Name: "Chicken", Qty: "500g"},
		{Name: "Onion", Qty: "2"},
	}))

	state := s.State()
	require.Len(t, state.Ingredients, 2)
	// First occurrence wins.
	assert.Equal(t, "200g", state.Ingredients[0].Qty)
}

func TestSetSecretIngredientsTrimsAndDedupes(t *testing.T) {
	f := newFixture()
	s := f.guestSession(t)

	s.SetSecretIngredients(context.Background(), []string{" Saffron ", "Saffron", "", "Miso"})
	assert.Equal(t, []string{"Saffron", "Miso"}, s.State().SecretIngredients)
}

func TestSetPreferencesPartialUpdate(t *testing.T) {
	f := newFixture()
	s := f.guestSession(t)

	s.SetPreferences(context.Background(), types.Preferences{Cuisine: "Italian"})

	prefs := s.State().Preferences
	assert.Equal(t, "Italian", prefs.Cuisine)
	assert.Equal(t, "Moderate", prefs.Budget)
	assert.Equal(t, "Main", prefs.DishType)
}

func TestGenerateListEmptySelectionIsNoOp(t *testing.T) {
	f := newFixture()
	s := f.guestSession(t)

	s.GenerateList(context.Background(), "EN")

	assert.Equal(t, 0, f.inference.callCount())
	assert.Empty(t, s.State().Recipes)
}

func TestGenerateListAppends(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)

	s.GenerateList(context.Background(), "EN")
	s.GenerateList(context.Background(), "EN")

	state := s.State()
	assert.Len(t, state.Recipes, 4)
	assert.False(t, state.Loading)

	// Generated previews get synthetic ids tied to generation time.
	assert.True(t, strings.HasPrefix(state.Recipes[0].ID, "recipe_"))
}

func TestGenerateListCreatesChatLazily(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)

	s.GenerateList(context.Background(), "EN")
	first := s.State().CurrentChatID
	require.NotEmpty(t, first)
	assert.True(t, strings.HasPrefix(first, "guest_"))

	// A second generation reuses the active chat.
	s.GenerateList(context.Background(), "EN")
	assert.Equal(t, first, s.State().CurrentChatID)

	history := s.State().ChatHistory
	require.Len(t, history, 1)
	assert.Equal(t, "Chicken (200g)...", history[0].Title)
}

func TestGenerateListMintsUniqueIDs(t *testing.T) {
	f := newFixture()
	// The model echoes the schema's "id" field with the same values on
	// every call; minted ids must not collide even within a millisecond.
	f.inference.response = `[{"id": "1", "title": "Soup"}, {"id": "2", "title": "Stew"}]`
	s := f.guestSession(t)
	selectChicken(t, s)

	s.GenerateList(context.Background(), "EN")
	s.GenerateList(context.Background(), "EN")

	state := s.State()
	require.Len(t, state.Recipes, 4)
	seen := make(map[string]bool)
	for _, r := range state.Recipes {
		assert.True(t, strings.HasPrefix(r.ID, "recipe_"), r.ID)
		assert.False(t, seen[r.ID], "duplicate recipe id %s", r.ID)
		seen[r.ID] = true
	}

	// Every entry stays addressable for expansion.
	last := state.Recipes[3].ID
	f.inference.response = `{"ingredients": ["water"], "instructions": ["boil"]}`
	s.ExpandDetails(context.Background(), last, "EN")
	assert.True(t, s.State().Recipes[3].IsFull)
	assert.False(t, s.State().Recipes[1].IsFull)
}

func TestConsecutivePlansGetDistinctChats(t *testing.T) {
	f := newFixture()
	f.inference.response = `[{"day": "Day 1", "title": "Stew", "mealType": "Dinner"}]`
	s := f.guestSession(t)
	selectChicken(t, s)

	// Back-to-back plans can land in the same millisecond; their chats
	// must still be distinguishable in history.
	s.GeneratePlan(context.Background(), 3, "EN")
	first := s.State().CurrentChatID
	s.GeneratePlan(context.Background(), 3, "EN")
	second := s.State().CurrentChatID

	assert.NotEqual(t, first, second)

	history := s.State().ChatHistory
	require.Len(t, history, 2)
	assert.NotEqual(t, history[0].ID, history[1].ID)
}

func TestChatTitleTruncatesOnRunes(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	s.SetSecretIngredients(context.Background(), []string{strings.Repeat("漢", 50)})

	s.GenerateList(context.Background(), "EN")

	history := s.State().ChatHistory
	require.Len(t, history, 1)
	title := history[0].Title
	assert.True(t, utf8.ValidString(title))
	// 40 runes of ingredients plus the ellipsis.
	assert.Equal(t, 43, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestGenerateListFailureLeavesRecipes(t *testing.T) {
	f := newFixture()
	f.inference.err = fmt.Errorf("model offline")
	s := f.guestSession(t)
	selectChicken(t, s)

	s.GenerateList(context.Background(), "EN")

	state := s.State()
	assert.Empty(t, state.Recipes)
	assert.False(t, state.Loading)
}

func TestGenerateListAuthenticatedAdoptsStoreIDs(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.userSession(t)
	selectChicken(t, s)

	s.GenerateList(context.Background(), "EN")

	state := s.State()
	require.Len(t, state.Recipes, 2)
	assert.Equal(t, "store-1", state.Recipes[0].ID)
	assert.Equal(t, "store-2", state.Recipes[1].ID)
	assert.Equal(t, "chat-1", state.CurrentChatID)
}

func TestExpandDetails(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)
	s.GenerateList(context.Background(), "EN")

	id := s.State().Recipes[0].ID
	f.inference.response = `{"ingredients": ["1 chicken"], "instructions": ["roast it"], "timerMinutes": [90]}`
	s.ExpandDetails(context.Background(), id, "EN")

	got := s.State().Recipes[0]
	assert.True(t, got.IsFull)
	assert.Equal(t, []string{"1 chicken"}, got.Ingredients)
	assert.Equal(t, []string{"roast it"}, got.Instructions)
	assert.Equal(t, []int{90}, got.TimerMinutes)
	assert.Equal(t, "https://img.example.com/dish.png", got.ImageURL)
}

func TestExpandDetailsAlreadyFullIsNoOp(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)
	s.GenerateList(context.Background(), "EN")

	id := s.State().Recipes[0].ID
	f.inference.response = `{"ingredients": ["1 chicken"], "instructions": ["roast it"]}`
	s.ExpandDetails(context.Background(), id, "EN")

	before := f.inference.callCount()
	s.ExpandDetails(context.Background(), id, "EN")
	assert.Equal(t, before, f.inference.callCount())
}

func TestExpandDetailsDegradedOnFailure(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)
	s.GenerateList(context.Background(), "EN")

	id := s.State().Recipes[0].ID
	f.inference.err = fmt.Errorf("model offline")
	s.ExpandDetails(context.Background(), id, "EN")

	got := s.State().Recipes[0]
	assert.True(t, got.IsFull)
	assert.Equal(t, []string{"Error generating details. Please try again."}, got.Ingredients)
	assert.Equal(t, []string{"The AI had a hiccup. Click 'View More' again to retry."}, got.Instructions)
}

func TestExpandDetailsImageFallback(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	f.images.err = fmt.Errorf("no bucket")
	s := f.guestSession(t)
	selectChicken(t, s)
	s.GenerateList(context.Background(), "EN")

	id := s.State().Recipes[0].ID
	f.inference.response = `{"ingredients": ["1 chicken"], "instructions": ["roast it"]}`
	s.ExpandDetails(context.Background(), id, "EN")

	assert.Equal(t, fallbackImageURL, s.State().Recipes[0].ImageURL)
}

func TestExpandDetailsDiscardsStaleResult(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)
	s.GenerateList(context.Background(), "EN")

	id := s.State().Recipes[0].ID
	f.inference.response = `{"ingredients": ["1 chicken"], "instructions": ["roast it"]}`
	// The list is cleared while the expansion is in flight.
	f.inference.onCall = func() { s.Clear(context.Background()) }
	s.ExpandDetails(context.Background(), id, "EN")

	assert.Empty(t, s.State().Recipes)
}

func TestGeneratePlanReplacesRecipes(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)
	s.GenerateList(context.Background(), "EN")
	firstChat := s.State().CurrentChatID

	f.inference.response = `[
  {"day": "Day 1", "title": "Porridge", "mealType": "Breakfast"},
  {"day": "Day 1", "title": "Salad", "mealType": "Lunch"},
  {"day": "Day 1", "title": "Stew", "mealType": "Dinner"}
]`
	s.GeneratePlan(context.Background(), 3, "EN")

	state := s.State()
	assert.Len(t, state.Recipes, 3)
	assert.Len(t, state.MealPlan, 3)
	assert.True(t, strings.HasPrefix(state.Recipes[0].ID, "plan_"))

	// Plans always start a fresh chat.
	assert.NotEqual(t, firstChat, state.CurrentChatID)
	require.Len(t, state.ChatHistory, 2)
	assert.Equal(t, "3-Day Plan: Chicken (200g)...", state.ChatHistory[0].Title)
}

func TestGeneratePlanInvalidDuration(t *testing.T) {
	f := newFixture()
	s := f.guestSession(t)
	selectChicken(t, s)

	s.GeneratePlan(context.Background(), 5, "EN")

	assert.Equal(t, 0, f.inference.callCount())
	assert.Empty(t, s.State().MealPlan)
}

func TestUpdateRecipe(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)
	s.GenerateList(context.Background(), "EN")

	edited := s.State().Recipes[0]
	edited.Title = "Renamed"
	s.UpdateRecipe(context.Background(), edited)
	s.UpdateRecipe(context.Background(), edited)

	assert.Equal(t, "Renamed", s.State().Recipes[0].Title)
	assert.Len(t, s.State().Recipes, 2)
}

func TestUpdateRecipeUnknownIDIsNoOp(t *testing.T) {
	f := newFixture()
	s := f.guestSession(t)

	s.UpdateRecipe(context.Background(), types.Recipe{ID: "missing", Title: "Ghost"})
	assert.Empty(t, s.State().Recipes)
}

func TestSelectChatGuest(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)
	s.GenerateList(context.Background(), "EN")

	chatID := s.State().CurrentChatID
	s.SelectChat(context.Background(), chatID)

	// Guest chats have no remote rows: empty list, no store call.
	assert.Empty(t, s.State().Recipes)
	assert.Equal(t, 0, f.recipes.calls)
}

func TestSelectChatAuthenticated(t *testing.T) {
	f := newFixture()
	f.recipes.listed = []types.Recipe{{ID: "store-9", Title: "Gratin"}}
	s := f.userSession(t)

	s.SelectChat(context.Background(), "chat-9")

	state := s.State()
	assert.Equal(t, "chat-9", state.CurrentChatID)
	require.Len(t, state.Recipes, 1)
	assert.Equal(t, "Gratin", state.Recipes[0].Title)
	assert.Empty(t, state.MealPlan)
}

func TestClearKeepsChatHistory(t *testing.T) {
	f := newFixture()
	f.inference.response = ideaListResponse
	s := f.guestSession(t)
	selectChicken(t, s)
	s.SetSecretIngredients(context.Background(), []string{"Saffron"})
	s.SetPreferences(context.Background(), types.Preferences{DishType: "Dessert"})
	s.GenerateList(context.Background(), "EN")

	s.Clear(context.Background())

	state := s.State()
	assert.Empty(t, state.Ingredients)
	assert.Empty(t, state.SecretIngredients)
	assert.Empty(t, state.Recipes)
	assert.Empty(t, state.CurrentChatID)
	assert.Equal(t, "Main", state.Preferences.DishType)
	assert.Len(t, state.ChatHistory, 1)
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture()
	s := f.guestSession(t)
	selectChicken(t, s)
	s.SetPreferences(context.Background(), types.Preferences{Cuisine: "Thai"})

	// A fresh session for the same key sees the persisted state.
	restored := New(context.Background(), f.deps(), "guest-key", "")
	state := restored.State()
	require.Len(t, state.Ingredients, 1)
	assert.Equal(t, "Chicken", state.Ingredients[0].Name)
	assert.Equal(t, "Thai", state.Preferences.Cuisine)
}

func TestRemoteStateOverwritesSnapshot(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.snapshots.Save(context.Background(), "user-1", types.KitchenSnapshot{
		Cuisine: "Japanese",
	}))
	f.profiles.remote = &types.KitchenSnapshot{Cuisine: "Mexican"}
	f.chats.history = []types.Chat{{ID: "chat-1", Title: "Old chat"}}

	s := f.userSession(t)

	state := s.State()
	assert.Equal(t, "Mexican", state.Preferences.Cuisine)
	require.Len(t, state.ChatHistory, 1)
	assert.Equal(t, "Old chat", state.ChatHistory[0].Title)
}

func TestDebouncedRemoteSync(t *testing.T) {
	f := newFixture()
	s := f.userSession(t)

	// A burst of mutations collapses to one remote write of the final state.
	s.SetPreferences(context.Background(), types.Preferences{Cuisine: "Thai"})
	s.SetPreferences(context.Background(), types.Preferences{Cuisine: "Indian"})
	s.SetPreferences(context.Background(), types.Preferences{Cuisine: "Lebanese"})

	require.Eventually(t, func() bool {
		return f.profiles.upsertCount() == 1
	}, time.Second, 5*time.Millisecond)

	f.profiles.mu.Lock()
	defer f.profiles.mu.Unlock()
	require.NotNil(t, f.profiles.remote)
	assert.Equal(t, "Lebanese", f.profiles.remote.Cuisine)
}

func TestGuestNeverSyncsRemotely(t *testing.T) {
	f := newFixture()
	s := f.guestSession(t)

	s.SetPreferences(context.Background(), types.Preferences{Cuisine: "Thai"})
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 0, f.profiles.upsertCount())
}

func TestFlushWritesPendingState(t *testing.T) {
	f := newFixture()
	s := f.userSession(t)
	s.debounceWait = time.Hour // never fires on its own

	s.SetPreferences(context.Background(), types.Preferences{Cuisine: "Thai"})
	s.Flush(context.Background())

	assert.Equal(t, 1, f.profiles.upsertCount())

	f.profiles.mu.Lock()
	defer f.profiles.mu.Unlock()
	assert.Equal(t, "Thai", f.profiles.remote.Cuisine)
}

func TestManagerReusesSessions(t *testing.T) {
	f := newFixture()
	m := NewManager(f.deps())

	a := m.Get(context.Background(), "guest-1", "")
	b := m.Get(context.Background(), "guest-1", "")
	c := m.Get(context.Background(), "guest-2", "")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
