package catalog

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/avesier/menurota/internal/testutil"
)

func TestHTTPClient_ResolveTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags/breakfast" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekret" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Write([]byte(`{"id":42,"slug":"breakfast"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "sekret", time.Second)
	ctx := testutil.TestContext(t)

	id, ok, err := client.ResolveTag(ctx, "breakfast")
	if err != nil || !ok || id != 42 {
		t.Errorf("ResolveTag = (%d, %v, %v), want (42, true, nil)", id, ok, err)
	}

	// Unknown slug is not an error.
	id, ok, err = client.ResolveTag(ctx, "gone")
	if err != nil || ok || id != 0 {
		t.Errorf("ResolveTag(unknown) = (%d, %v, %v), want (0, false, nil)", id, ok, err)
	}
}

func TestHTTPClient_MembersOf(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags/42/products" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"product_ids":[3,1,2]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second)
	ctx := testutil.TestContext(t)

	got, err := client.MembersOf(ctx, 42)
	if err != nil {
		t.Fatalf("MembersOf error = %v", err)
	}
	if !reflect.DeepEqual(got, []int64{3, 1, 2}) {
		t.Errorf("MembersOf = %v, want [3 1 2]", got)
	}

	if _, err := client.MembersOf(ctx, 99); err == nil {
		t.Error("MembersOf(unknown tag) expected error")
	}
}

func TestHTTPClient_Mutations(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second)
	ctx := testutil.TestContext(t)

	if err := client.AddMember(ctx, 7, 42); err != nil {
		t.Fatalf("AddMember error = %v", err)
	}
	if err := client.RemoveMember(ctx, 8, 42); err != nil {
		t.Fatalf("RemoveMember error = %v", err)
	}

	want := []string{"PUT /tags/42/products/7", "DELETE /tags/42/products/8"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestHTTPClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second)
	ctx := testutil.TestContext(t)

	if err := client.AddMember(ctx, 1, 2); err == nil {
		t.Error("AddMember on 500 expected error")
	}
	if _, _, err := client.ResolveTag(ctx, "x"); err == nil {
		t.Error("ResolveTag on 500 expected error")
	}
}
