package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taxbook/taxbook-go/api"
	"github.com/taxbook/taxbook-go/credentials/storefakes"
)

func newClient(t *testing.T, baseURL string, store *storefakes.FakeStore) *api.Client {
	t.Helper()
	client, err := api.New(baseURL, store)
	require.NoError(t, err)
	return client
}

func TestDo_AttachesBearerHeader(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("token-1", "refresh-1"))
	require.NoError(t, client.Get(context.Background(), "/things/", nil))
	require.Equal(t, "Bearer token-1", gotAuth)
	require.Equal(t, "application/json", gotContentType)
}

func TestDo_NoHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, storefakes.NewFakeStore())
	require.NoError(t, client.Get(context.Background(), "/things/", nil))
	require.Empty(t, gotAuth)
}

// A 401 with a stored refresh token triggers exactly one refresh and one
// retried request; the retried response is the final result.
func TestDo_RefreshAndRetryOnce(t *testing.T) {
	var refreshCalls, thingCalls int32

	var sentRefresh string
	mux := http.NewServeMux()
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		var body struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		sentRefresh = body.Refresh
		json.NewEncoder(w).Encode(map[string]string{"access": "fresh", "refresh": "rotated"})
	})
	mux.HandleFunc("/things/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&thingCalls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Токен недействителен"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]int{"id": 1})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := storefakes.NewFakeStoreWith("stale", "refresh-1")
	client := newClient(t, srv.URL, store)

	var out struct {
		ID int `json:"id"`
	}
	require.NoError(t, client.Get(context.Background(), "/things/", &out))
	require.Equal(t, 1, out.ID)
	require.Equal(t, "refresh-1", sentRefresh)
	require.EqualValues(t, 1, refreshCalls)
	require.EqualValues(t, 2, thingCalls)

	access, _ := store.Access()
	require.Equal(t, "fresh", access)
	refresh, _ := store.Refresh()
	require.Equal(t, "rotated", refresh)
}

// A second 401 after the retried request is surfaced, never refreshed
// again.
func TestDo_SecondUnauthorizedIsFinal(t *testing.T) {
	var refreshCalls, thingCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("/things/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&thingCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "nope"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("stale", "refresh-1"))

	err := client.Get(context.Background(), "/things/", nil)
	require.Error(t, err)
	require.True(t, api.IsUnauthorized(err))
	require.EqualValues(t, 1, refreshCalls)
	require.EqualValues(t, 2, thingCalls)
}

// Refresh failure clears the credential store and surfaces the original
// 401 as Unauthorized.
func TestDo_RefreshFailureClearsCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "Токен отозван"}`))
	})
	mux.HandleFunc("/things/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Сессия истекла"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := storefakes.NewFakeStoreWith("stale", "refresh-1")
	client := newClient(t, srv.URL, store)

	err := client.Get(context.Background(), "/things/", nil)
	require.True(t, api.IsUnauthorized(err))

	_, ok := store.Access()
	require.False(t, ok)
	_, ok = store.Refresh()
	require.False(t, ok)
}

func TestDo_NoRefreshTokenMeansNoRefreshCall(t *testing.T) {
	var refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
	})
	mux.HandleFunc("/things/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("stale", ""))

	err := client.Get(context.Background(), "/things/", nil)
	require.True(t, api.IsUnauthorized(err))
	require.EqualValues(t, 0, refreshCalls)
}

// Concurrent 401 recoveries share a single refresh request.
func TestDo_ConcurrentRefreshCoalesced(t *testing.T) {
	var refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		time.Sleep(100 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"access": "fresh", "refresh": "rotated"})
	})
	mux.HandleFunc("/things/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("stale", "refresh-1"))

	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Get(context.Background(), "/things/", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}
	require.EqualValues(t, 1, refreshCalls)
}

func TestDo_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("token", "refresh"))

	out := map[string]string{"untouched": "yes"}
	require.NoError(t, client.Delete(context.Background(), "/things/1/"))
	require.NoError(t, client.Do(context.Background(), http.MethodDelete, "/things/2/", nil, &out))
	require.Equal(t, "yes", out["untouched"])
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := newClient(t, srv.URL, storefakes.NewFakeStore())
	err := client.Get(context.Background(), "/things/", nil)
	require.True(t, api.IsNetwork(err))
}

func TestErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		kind    api.Kind
	}{
		{"detail field", 400, `{"detail": "Неверный пароль"}`, "Неверный пароль", api.KindValidation},
		{"message field", 400, `{"message": "something went wrong"}`, "something went wrong", api.KindValidation},
		{"error field", 400, `{"error": "bad input"}`, "bad input", api.KindValidation},
		{"detail wins over message", 400, `{"message": "b", "detail": "a"}`, "a", api.KindValidation},
		{"first field error", 400, `{"password": ["Пароль слишком короткий."]}`, "Пароль слишком короткий.", api.KindValidation},
		{"generic fallback", 418, `{"weird": 1}`, "Error 418", api.KindValidation},
		{"empty body", 502, ``, "Error 502", api.KindServer},
		{"unauthorized", 401, `{"detail": "expired"}`, "expired", api.KindUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			// No refresh token so a 401 is surfaced directly.
			client := newClient(t, srv.URL, storefakes.NewFakeStore())
			err := client.Get(context.Background(), "/things/", nil)
			require.Error(t, err)

			var re *api.RequestError
			require.ErrorAs(t, err, &re)
			require.Equal(t, tc.message, re.Message)
			require.Equal(t, tc.kind, re.Kind)
			require.Equal(t, tc.status, re.Status)
		})
	}
}

func TestErrorFieldsPopulated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"email": ["Обязательное поле."], "password": ["Слишком короткий.", "Слишком простой."]}`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, storefakes.NewFakeStore())
	err := client.Get(context.Background(), "/things/", nil)

	var re *api.RequestError
	require.ErrorAs(t, err, &re)
	require.Equal(t, api.KindValidation, re.Kind)
	require.Equal(t, []string{"Обязательное поле."}, re.Fields["email"])
	require.Len(t, re.Fields["password"], 2)
	// First field alphabetically supplies the display message.
	require.Equal(t, "Обязательное поле.", re.Message)
}

func TestListNormalization(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id": 1, "name": "Продажи"}]`))
		}))
		defer srv.Close()

		client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("t", "r"))
		categories, err := client.ListCategories(context.Background())
		require.NoError(t, err)
		require.Len(t, categories, 1)
		require.Equal(t, "Продажи", categories[0].Name)
	})

	t.Run("results envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"count": 1, "results": [{"id": 2, "name": "Аренда"}]}`))
		}))
		defer srv.Close()

		client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("t", "r"))
		categories, err := client.ListCategories(context.Background())
		require.NoError(t, err)
		require.Len(t, categories, 1)
		require.Equal(t, "Аренда", categories[0].Name)
	})
}

func TestLogin_DoesNotSendAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"access": "a", "refresh": "r"})
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("old-token", "old-refresh"))
	pair, err := client.Login(context.Background(), api.LoginRequest{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "a", pair.Access)
	require.Empty(t, gotAuth)
}

// The unauthorized handler fires only when a 401 is terminal: a recovered
// refresh-and-retry must not trip it.
func TestDo_UnauthorizedHandler(t *testing.T) {
	t.Run("not fired when refresh recovers", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
		})
		mux.HandleFunc("/things/", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{}`))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("stale", "refresh-1"))
		var fired int
		client.OnUnauthorized(func() { fired++ })

		require.NoError(t, client.Get(context.Background(), "/things/", nil))
		require.Zero(t, fired)
	})

	t.Run("fired when the refresh is rejected", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail": "Токен отозван"}`))
		})
		mux.HandleFunc("/things/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("stale", "refresh-1"))
		var fired int
		client.OnUnauthorized(func() { fired++ })

		require.True(t, api.IsUnauthorized(client.Get(context.Background(), "/things/", nil)))
		require.Equal(t, 1, fired)
	})

	t.Run("fired on 401 without a refresh token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := newClient(t, srv.URL, storefakes.NewFakeStoreWith("stale", ""))
		var fired int
		client.OnUnauthorized(func() { fired++ })

		require.True(t, api.IsUnauthorized(client.Get(context.Background(), "/things/", nil)))
		require.Equal(t, 1, fired)
	})
}

// Logout must not run the refresh-and-retry cycle: a rotation-enabled
// backend would otherwise mint a replacement refresh token that the
// blacklist request never covers.
func TestLogout_SkipsRefreshRecovery(t *testing.T) {
	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		json.NewEncoder(w).Encode(map[string]string{"access": "fresh", "refresh": "rotated"})
	})
	mux.HandleFunc("/users/logout/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Токен недействителен"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := storefakes.NewFakeStoreWith("stale", "refresh-1")
	client := newClient(t, srv.URL, store)
	var fired int
	client.OnUnauthorized(func() { fired++ })

	err := client.Logout(context.Background(), "refresh-1")
	require.True(t, api.IsUnauthorized(err))
	require.Zero(t, refreshCalls)
	require.Zero(t, fired, "an intentional logout is not a session expiry")

	refresh, _ := store.Refresh()
	require.Equal(t, "refresh-1", refresh, "no rotation happened")
}
