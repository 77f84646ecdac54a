// catalog-stub is an in-memory stand-in for the product catalog API,
// useful for local development and manual testing of the runner. Tags
// are created on demand via POST /tags; membership mutations are logged
// so a sweep's diff is visible.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type tag struct {
	ID      int64
	Slug    string
	Members map[int64]struct{}
}

type catalog struct {
	mu     sync.Mutex
	nextID int64
	bySlug map[string]*tag
	byID   map[int64]*tag
}

func newCatalog() *catalog {
	return &catalog{
		nextID: 1,
		bySlug: make(map[string]*tag),
		byID:   make(map[int64]*tag),
	}
}

func (c *catalog) create(slug string) *tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.bySlug[slug]; ok {
		return t
	}
	t := &tag{ID: c.nextID, Slug: slug, Members: make(map[int64]struct{})}
	c.nextID++
	c.bySlug[slug] = t
	c.byID[t.ID] = t
	return t
}

func main() {
	addr := ":9000"
	if v := os.Getenv("ADDR"); v != "" {
		addr = v
	}

	cat := newCatalog()

	// Seed tags from SEED_TAGS, a comma-separated slug list.
	if seed := os.Getenv("SEED_TAGS"); seed != "" {
		for _, slug := range strings.Split(seed, ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				t := cat.create(slug)
				log.Printf("catalog-stub: seeded tag %q (id=%d)", t.Slug, t.ID)
			}
		}
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	http.HandleFunc("/tags", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createTag(cat, w, r)
		case http.MethodGet:
			listTags(cat, w)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	http.HandleFunc("/tags/", func(w http.ResponseWriter, r *http.Request) {
		route(cat, w, r)
	})

	log.Printf("catalog-stub listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func createTag(cat *catalog, w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Slug) == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, `{"error":"slug is required"}`)
		return
	}

	t := cat.create(req.Slug)
	log.Printf("catalog-stub: tag %q (id=%d)", t.Slug, t.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"id": t.ID, "slug": t.Slug})
}

func listTags(cat *catalog, w http.ResponseWriter) {
	cat.mu.Lock()
	type item struct {
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
	}
	items := make([]item, 0, len(cat.byID))
	for _, t := range cat.byID {
		items = append(items, item{ID: t.ID, Slug: t.Slug})
	}
	cat.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"tags": items})
}

// route dispatches the /tags/... subtree:
//
//	GET    /tags/{slug}                     resolve a slug
//	GET    /tags/{id}/products              list members
//	PUT    /tags/{id}/products/{productID}  add a member
//	DELETE /tags/{id}/products/{productID}  remove a member
func route(cat *catalog, w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		resolveTag(cat, w, parts[1])

	case len(parts) == 3 && parts[2] == "products" && r.Method == http.MethodGet:
		listMembers(cat, w, parts[1])

	case len(parts) == 4 && parts[2] == "products" &&
		(r.Method == http.MethodPut || r.Method == http.MethodDelete):
		mutateMember(cat, w, r.Method, parts[1], parts[3])

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func resolveTag(cat *catalog, w http.ResponseWriter, slug string) {
	cat.mu.Lock()
	t, ok := cat.bySlug[slug]
	cat.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": t.ID, "slug": t.Slug})
}

func listMembers(cat *catalog, w http.ResponseWriter, idStr string) {
	t, ok := tagByID(cat, idStr)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	cat.mu.Lock()
	ids := make([]int64, 0, len(t.Members))
	for id := range t.Members {
		ids = append(ids, id)
	}
	cat.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	writeJSON(w, http.StatusOK, map[string]any{"product_ids": ids})
}

func mutateMember(cat *catalog, w http.ResponseWriter, method, idStr, productStr string) {
	t, ok := tagByID(cat, idStr)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	productID, err := strconv.ParseInt(productStr, 10, 64)
	if err != nil || productID <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	cat.mu.Lock()
	if method == http.MethodPut {
		t.Members[productID] = struct{}{}
	} else {
		delete(t.Members, productID)
	}
	cat.mu.Unlock()

	log.Printf("catalog-stub: %s tag=%s product=%d", method, t.Slug, productID)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("catalog-stub: json encode error: %v", err)
	}
}

func tagByID(cat *catalog, idStr string) (*tag, bool) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, false
	}
	cat.mu.Lock()
	t, ok := cat.byID[id]
	cat.mu.Unlock()
	return t, ok
}
