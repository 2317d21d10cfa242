package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuistot-app/backend/internal/llm"
	"github.com/cuistot-app/backend/internal/types"
)

// Collaborator interfaces. The session owns all mutable state and decides
// when to touch the snapshot store versus the remote store; the
// implementations live in internal/llm and internal/service.

// Inference is the chat-completion collaborator: prompt text in, text out.
type Inference interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator produces a hosted image URL for a recipe title.
type ImageGenerator interface {
	GenerateRecipeImage(ctx context.Context, title string) (string, error)
}

// RecipeStore is the remote recipe persistence adapter.
type RecipeStore interface {
	SaveRecipe(ctx context.Context, userID string, r types.Recipe) (string, error)
	UpdateRecipe(ctx context.Context, userID string, r types.Recipe) error
	ListChatRecipes(ctx context.Context, userID, chatID string) ([]types.Recipe, error)
}

// ChatStore is the remote chat persistence adapter.
type ChatStore interface {
	CreateChat(ctx context.Context, userID, title string) (types.Chat, error)
	ListChats(ctx context.Context, userID string) ([]types.Chat, error)
}

// ProfileStore is the remote kitchen-snapshot layer, authenticated only.
type ProfileStore interface {
	UpsertKitchenState(ctx context.Context, userID string, snap types.KitchenSnapshot) error
	GetKitchenState(ctx context.Context, userID string) (*types.KitchenSnapshot, error)
}

// Deps bundles the collaborators a session needs. Constructed once per
// process and injected; sessions never reach for ambient globals.
type Deps struct {
	Inference Inference
	Images    ImageGenerator
	Recipes   RecipeStore
	Chats     ChatStore
	Profiles  ProfileStore
	Snapshots SnapshotStore
}

// debounceDelay is the trailing-edge window for remote snapshot upserts.
// Mutations within the window collapse to one write of the latest state.
const debounceDelay = time.Second

// fallbackImageURL substitutes for a failed image generation so detail
// expansion never fails on account of the illustration.
const fallbackImageURL = "https://images.unsplash.com/photo-1495521821757-a1efb6729352?auto=format&fit=crop&q=80&w=800"

// Degraded detail content shown when expansion fails; the recipe is still
// marked full so the user is not stuck on a spinner.
var (
	degradedIngredients  = []string{"Error generating details. Please try again."}
	degradedInstructions = []string{"The AI had a hiccup. Click 'View More' again to retry."}
)

// Session reconciles ephemeral view state, the always-on snapshot store and
// the optional authenticated remote store for one user or guest device.
type Session struct {
	deps   Deps
	key    string // snapshot key: user id, or guest session id
	userID string // empty for guests
	idSeq  uint64 // monotonic suffix for minted client ids

	mu            sync.Mutex
	ingredients   []types.IngredientSelection
	secret        []string
	prefs         types.Preferences
	recipes       []types.Recipe
	chatHistory   []types.Chat
	currentChatID string
	mealPlan      []types.Recipe
	loading       bool

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
	debounceWait  time.Duration
}

// State is a point-in-time copy of the session's view state.
type State struct {
	Ingredients       []types.IngredientSelection `json:"ingredients"`
	SecretIngredients []string                    `json:"secretIngredients"`
	Preferences       types.Preferences           `json:"preferences"`
	Recipes           []types.Recipe              `json:"recipes"`
	ChatHistory       []types.Chat                `json:"chatHistory"`
	CurrentChatID     string                      `json:"currentChatId,omitempty"`
	MealPlan          []types.Recipe              `json:"mealPlan,omitempty"`
	Loading           bool                        `json:"loading"`
}

// New creates a session and restores persisted state: the snapshot store is
// applied first and always; when authenticated, the remote kitchen state
// overwrites it and the chat history is fetched.
func New(ctx context.Context, deps Deps, key, userID string) *Session {
	s := &Session{
		deps:         deps,
		key:          key,
		userID:       userID,
		prefs:        types.DefaultPreferences(),
		debounceWait: debounceDelay,
	}

	if deps.Snapshots != nil {
		snap, err := deps.Snapshots.Load(ctx, key)
		if err != nil {
			log.Printf("[Session] failed to load snapshot for %s: %v", key, err)
		} else if snap != nil {
			s.applySnapshot(*snap)
		}
	}

	if s.authenticated() {
		if snap, err := deps.Profiles.GetKitchenState(ctx, userID); err != nil {
			log.Printf("[Session] failed to fetch kitchen state for %s: %v", userID, err)
		} else if snap != nil {
			s.applySnapshot(*snap)
		}

		if chats, err := deps.Chats.ListChats(ctx, userID); err != nil {
			log.Printf("[Session] failed to fetch chat history for %s: %v", userID, err)
		} else {
			s.chatHistory = chats
		}
	}

	return s
}

func (s *Session) authenticated() bool {
	return s.userID != ""
}

// applySnapshot merges a persisted snapshot into session state. Only fields
// present in the snapshot overwrite; callers hold no lock (construction).
func (s *Session) applySnapshot(snap types.KitchenSnapshot) {
	if snap.Ingredients != nil {
		s.ingredients = snap.Ingredients
	}
	if snap.SecretIngredients != nil {
		s.secret = snap.SecretIngredients
	}
	if snap.Budget != "" {
		s.prefs.Budget = snap.Budget
	}
	if snap.FamilySize != "" {
		s.prefs.FamilySize = snap.FamilySize
	}
	if snap.Cuisine != "" {
		s.prefs.Cuisine = snap.Cuisine
	}
	if snap.DishType != "" {
		s.prefs.DishType = snap.DishType
	}
	if snap.MealPlan != nil {
		s.mealPlan = snap.MealPlan
	}
}

func (s *Session) snapshotLocked() types.KitchenSnapshot {
	return types.KitchenSnapshot{
		Ingredients:       append([]types.IngredientSelection(nil), s.ingredients...),
		SecretIngredients: append([]string(nil), s.secret...),
		Budget:            s.prefs.Budget,
		FamilySize:        s.prefs.FamilySize,
		Cuisine:           s.prefs.Cuisine,
		DishType:          s.prefs.DishType,
		MealPlan:          append([]types.Recipe(nil), s.mealPlan...),
	}
}

// persistKitchen writes the snapshot to the snapshot store synchronously
// and, when authenticated, (re)schedules the debounced remote upsert. A new
// mutation within the window cancels the pending write, so only the latest
// snapshot of a burst reaches the remote store.
func (s *Session) persistKitchen(ctx context.Context, snap types.KitchenSnapshot) {
	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.Save(ctx, s.key, snap); err != nil {
			log.Printf("[Session] failed to save snapshot for %s: %v", s.key, err)
		}
	}

	if !s.authenticated() {
		return
	}

	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounceWait, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.deps.Profiles.UpsertKitchenState(ctx, s.userID, snap); err != nil {
			log.Printf("[Session] failed to sync kitchen state for %s: %v", s.userID, err)
		}
	})
}

// Flush executes any pending debounced remote write immediately. Called on
// shutdown so a burst right before exit is not lost.
func (s *Session) Flush(ctx context.Context) {
	s.debounceMu.Lock()
	timer := s.debounceTimer
	s.debounceTimer = nil
	s.debounceMu.Unlock()

	if timer == nil || !timer.Stop() {
		return
	}

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.authenticated() {
		if err := s.deps.Profiles.UpsertKitchenState(ctx, s.userID, snap); err != nil {
			log.Printf("[Session] failed to flush kitchen state for %s: %v", s.userID, err)
		}
	}
}

// SetIngredients replaces the ingredient selection. Names must come from
// the catalog; duplicates collapse to the first occurrence.
func (s *Session) SetIngredients(ctx context.Context, selection []types.IngredientSelection) error {
	deduped := make([]types.IngredientSelection, 0, len(selection))
	seen := make(map[string]bool, len(selection))
	for _, ing := range selection {
		if !InCatalog(ing.Name) {
			return fmt.Errorf("unknown ingredient %q", ing.Name)
		}
		if seen[ing.Name] {
			continue
		}
		seen[ing.Name] = true
		deduped = append(deduped, ing)
	}

	s.mu.Lock()
	s.ingredients = deduped
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persistKitchen(ctx, snap)
	return nil
}

// SetSecretIngredients replaces the secret ingredient set. Free text is
// permitted; duplicate entries are dropped.
func (s *Session) SetSecretIngredients(ctx context.Context, secret []string) {
	deduped := make([]string, 0, len(secret))
	seen := make(map[string]bool, len(secret))
	for _, item := range secret {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		deduped = append(deduped, item)
	}

	s.mu.Lock()
	s.secret = deduped
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persistKitchen(ctx, snap)
}

// SetPreferences applies the provided preference values. Empty fields keep
// their current value, so single-preference updates stay independent.
func (s *Session) SetPreferences(ctx context.Context, prefs types.Preferences) {
	s.mu.Lock()
	if prefs.Budget != "" {
		s.prefs.Budget = prefs.Budget
	}
	if prefs.FamilySize != "" {
		s.prefs.FamilySize = prefs.FamilySize
	}
	if prefs.Cuisine != "" {
		s.prefs.Cuisine = prefs.Cuisine
	}
	if prefs.DishType != "" {
		s.prefs.DishType = prefs.DishType
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persistKitchen(ctx, snap)
}

// GenerateList asks the model for recipe ideas and appends the previews to
// the current list, so repeated calls accumulate variants. Failures are
// logged and leave the recipe list untouched; the loading flag clears on
// every path.
func (s *Session) GenerateList(ctx context.Context, loc llm.Locale) {
	s.mu.Lock()
	if len(s.ingredients) == 0 && len(s.secret) == 0 {
		s.mu.Unlock()
		return
	}
	allIngs := llm.IngredientString(s.ingredients, s.secret)
	prefs := s.prefs
	s.loading = true
	s.mu.Unlock()

	defer s.setLoading(false)

	raw, err := s.deps.Inference.Complete(ctx, llm.BuildListPrompt(allIngs, loc, prefs))
	if err != nil {
		log.Printf("[Session] list generation failed: %v", err)
		return
	}

	ideas, err := llm.ParseIdeaList(raw)
	if err != nil {
		log.Printf("[Session] list parsing failed: %v", err)
		return
	}

	chatID := s.currentChat()
	if chatID == "" {
		chatID = s.createChat(ctx, truncate(allIngs, 40)+"...")
	}

	saved := make([]types.Recipe, 0, len(ideas))
	for _, idea := range ideas {
		idea.ID = s.nextID("recipe")
		idea.ChatID = chatID
		saved = append(saved, s.saveRemote(ctx, idea, chatID))
	}

	s.mu.Lock()
	s.recipes = append(s.recipes, saved...)
	s.mu.Unlock()
}

// ExpandDetails promotes a preview recipe to a full one: ingredients,
// instructions and per-step timers from the model, plus an image when the
// preview has none. A failed expansion yields a degraded full recipe so the
// user can retry; a failed image yields the fallback URL. The result is
// discarded if the recipe disappeared while the calls were in flight.
func (s *Session) ExpandDetails(ctx context.Context, recipeID string, loc llm.Locale) {
	s.mu.Lock()
	preview, found := s.findLocked(recipeID)
	s.mu.Unlock()
	if !found || preview.IsFull {
		return
	}

	full := preview
	raw, err := s.deps.Inference.Complete(ctx, llm.BuildDetailPrompt(preview.Title, preview.Description, loc))
	if err == nil {
		var details *llm.RecipeDetails
		if details, err = llm.ParseDetails(raw); err == nil {
			full.Ingredients = details.Ingredients
			full.Instructions = details.Instructions
			full.TimerMinutes = details.TimerMinutes
		}
	}
	if err != nil {
		log.Printf("[Session] detail expansion failed for %s: %v", recipeID, err)
		full.Ingredients = append([]string(nil), degradedIngredients...)
		full.Instructions = append([]string(nil), degradedInstructions...)
		full.TimerMinutes = nil
	}
	full.IsFull = true

	if full.ImageURL == "" {
		url, imgErr := s.deps.Images.GenerateRecipeImage(ctx, full.Title)
		if imgErr != nil {
			log.Printf("[Session] image generation failed for %s: %v", recipeID, imgErr)
			url = fallbackImageURL
		}
		full.ImageURL = url
	}

	s.mu.Lock()
	idx := s.indexLocked(recipeID)
	if idx < 0 {
		// Recipe was cleared or the list replaced while the expansion
		// was in flight; drop the stale result.
		s.mu.Unlock()
		log.Printf("[Session] discarding stale expansion for %s", recipeID)
		return
	}
	s.recipes[idx] = full
	s.mu.Unlock()

	s.updateRemote(ctx, full)
}

// GeneratePlan builds a days*3 meal plan (breakfast, lunch and dinner per
// day) in a fresh chat, replacing the recipe list rather than appending.
// days is 3 or 7.
func (s *Session) GeneratePlan(ctx context.Context, days int, loc llm.Locale) {
	if days != 3 && days != 7 {
		log.Printf("[Session] unsupported plan duration: %d days", days)
		return
	}

	s.mu.Lock()
	if len(s.ingredients) == 0 && len(s.secret) == 0 {
		s.mu.Unlock()
		return
	}
	allIngs := llm.IngredientString(s.ingredients, s.secret)
	prefs := s.prefs
	s.loading = true
	s.mu.Unlock()

	defer s.setLoading(false)

	raw, err := s.deps.Inference.Complete(ctx, llm.BuildPlanPrompt(days, allIngs, loc, prefs))
	if err != nil {
		log.Printf("[Session] plan generation failed: %v", err)
		return
	}

	entries, err := llm.ParsePlan(raw)
	if err != nil {
		log.Printf("[Session] plan parsing failed: %v", err)
		return
	}

	// A plan always starts a new chat, even when one is active.
	chatID := s.createChat(ctx, fmt.Sprintf("%d-Day Plan: %s...", days, truncate(allIngs, 20)))

	saved := make([]types.Recipe, 0, len(entries))
	for _, entry := range entries {
		entry.ID = s.nextID("plan")
		entry.ChatID = chatID
		saved = append(saved, s.saveRemote(ctx, entry, chatID))
	}

	s.mu.Lock()
	s.recipes = saved
	s.mealPlan = saved
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persistKitchen(ctx, snap)
}

// UpdateRecipe replaces the matching recipe in view state and propagates
// the edit remotely on a best-effort basis. Used for user title and
// description edits; idempotent for identical payloads.
func (s *Session) UpdateRecipe(ctx context.Context, updated types.Recipe) {
	s.mu.Lock()
	idx := s.indexLocked(updated.ID)
	if idx >= 0 {
		s.recipes[idx] = updated
	}
	s.mu.Unlock()
	if idx < 0 {
		return
	}

	s.updateRemote(ctx, updated)
}

// SelectChat activates a chat and clears any active plan view. Guest chats
// have no remote rows, so selecting one yields an empty recipe list without
// a store call.
func (s *Session) SelectChat(ctx context.Context, chatID string) {
	s.mu.Lock()
	s.currentChatID = chatID
	s.mealPlan = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persistKitchen(ctx, snap)

	if !s.authenticated() || strings.HasPrefix(chatID, "guest_") {
		s.mu.Lock()
		s.recipes = nil
		s.mu.Unlock()
		return
	}

	s.setLoading(true)
	defer s.setLoading(false)

	recipes, err := s.deps.Recipes.ListChatRecipes(ctx, s.userID, chatID)
	if err != nil {
		log.Printf("[Session] failed to load chat %s: %v", chatID, err)
		return
	}

	s.mu.Lock()
	s.recipes = recipes
	s.mu.Unlock()
}

// Clear resets the selection, secret ingredients, recipes, plan and active
// chat to their initial values. Chat history survives.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	s.ingredients = nil
	s.secret = nil
	s.recipes = nil
	s.mealPlan = nil
	s.currentChatID = ""
	s.prefs.DishType = types.DefaultPreferences().DishType
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persistKitchen(ctx, snap)
}

// State returns a copy of the current view state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Ingredients:       append([]types.IngredientSelection(nil), s.ingredients...),
		SecretIngredients: append([]string(nil), s.secret...),
		Preferences:       s.prefs,
		Recipes:           append([]types.Recipe(nil), s.recipes...),
		ChatHistory:       append([]types.Chat(nil), s.chatHistory...),
		CurrentChatID:     s.currentChatID,
		MealPlan:          append([]types.Recipe(nil), s.mealPlan...),
		Loading:           s.loading,
	}
}

// createChat starts a chat for the current generation. Authenticated chats
// get store ids; guests get local guest_-prefixed ids. A failed remote
// create leaves the generation chat-less rather than failing it.
func (s *Session) createChat(ctx context.Context, title string) string {
	if !s.authenticated() {
		chat := types.Chat{
			ID:        s.nextID("guest"),
			Title:     title,
			CreatedAt: time.Now(),
		}
		s.prependChat(chat)
		return chat.ID
	}

	chat, err := s.deps.Chats.CreateChat(ctx, s.userID, title)
	if err != nil {
		log.Printf("[Session] failed to create chat: %v", err)
		return ""
	}
	s.prependChat(chat)
	return chat.ID
}

func (s *Session) prependChat(chat types.Chat) {
	s.mu.Lock()
	s.chatHistory = append([]types.Chat{chat}, s.chatHistory...)
	s.currentChatID = chat.ID
	s.mu.Unlock()
}

// saveRemote persists a generated recipe when authenticated and adopts the
// store-assigned id. Insert failure keeps the client-generated id so the
// record stays addressable, just not durable.
func (s *Session) saveRemote(ctx context.Context, r types.Recipe, chatID string) types.Recipe {
	if !s.authenticated() || chatID == "" || strings.HasPrefix(chatID, "guest_") {
		return r
	}
	id, err := s.deps.Recipes.SaveRecipe(ctx, s.userID, r)
	if err != nil {
		log.Printf("[Session] failed to save recipe %q: %v", r.Title, err)
		return r
	}
	r.ID = id
	return r
}

// updateRemote propagates a recipe update when authenticated. Errors are
// logged only; the in-memory state is already updated.
func (s *Session) updateRemote(ctx context.Context, r types.Recipe) {
	if !s.authenticated() {
		return
	}
	if err := s.deps.Recipes.UpdateRecipe(ctx, s.userID, r); err != nil {
		log.Printf("[Session] failed to update recipe %s: %v", r.ID, err)
	}
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Session) currentChat() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentChatID
}

func (s *Session) findLocked(id string) (types.Recipe, bool) {
	if idx := s.indexLocked(id); idx >= 0 {
		return s.recipes[idx], true
	}
	return types.Recipe{}, false
}

func (s *Session) indexLocked(id string) int {
	for i := range s.recipes {
		if s.recipes[i].ID == id {
			return i
		}
	}
	return -1
}

// nextID mints a session-unique client id. Wall-clock millis alone collide
// when two generations land in the same millisecond, so a monotonic
// sequence disambiguates.
func (s *Session) nextID(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixMilli(), atomic.AddUint64(&s.idSeq, 1))
}

// truncate shortens s to n runes. Titles carry free-text ingredients, so
// cutting on bytes could split a multibyte character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
