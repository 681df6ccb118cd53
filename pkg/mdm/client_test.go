package mdm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/config"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
)

type fakeMDM struct {
	t           *testing.T
	exchanges   atomic.Int32
	attempts    atomic.Int32
	tokenStatus int
	omitTotal   bool
	mobileFail  bool
	// rejectFirst makes the first inventory request answer 401.
	rejectFirst atomic.Bool
	tokenDelay  time.Duration

	computers []map[string]interface{}
	mobiles   []map[string]interface{}
}

func newFakeMDM(t *testing.T) *fakeMDM {
	return &fakeMDM{
		t:           t,
		tokenStatus: http.StatusOK,
		computers: []map[string]interface{}{
			{
				"id":       "1042",
				"general":  map[string]interface{}{"name": "Lab-12", "assetTag": "A1042", "remoteManagement": map[string]interface{}{"managed": true}},
				"hardware": map[string]interface{}{"model": "MacBook Air", "serialNumber": "C02ABC", "processorType": "Apple M2", "totalRamMegabytes": 16384},
				"storage":  map[string]interface{}{"disks": []interface{}{map[string]interface{}{"device": "disk0", "sizeMegabytes": 494384}}},
			},
			{
				"id":       "7",
				"general":  map[string]interface{}{"name": "Office-iMac"},
				"hardware": map[string]interface{}{"serialNumber": "D25XYZ"},
			},
		},
		mobiles: []map[string]interface{}{
			{
				"mobileDeviceId": "88",
				"general":        map[string]interface{}{"displayName": "Cart 3 iPad", "assetTag": "M0088"},
				"hardware":       map[string]interface{}{"model": "iPad", "serialNumber": "DMPXYZ", "capacityMb": 30000},
			},
		},
	}
}

func (f *fakeMDM) token() string {
	return "tok-" + strconv.Itoa(int(f.exchanges.Load()))
}

func (f *fakeMDM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/oauth/token":
		f.attempts.Add(1)
		require.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(f.t, "id", r.PostForm.Get("client_id"))
		assert.Equal(f.t, "secret", r.PostForm.Get("client_secret"))
		if f.tokenDelay > 0 {
			time.Sleep(f.tokenDelay)
		}
		if f.tokenStatus != http.StatusOK {
			http.Error(w, "invalid_client", f.tokenStatus)
			return
		}
		f.exchanges.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": f.token(), "token_type": "Bearer"})
	case computersPath:
		if !f.authorized(w, r) {
			return
		}
		assert.Equal(f.t, computerSections, r.URL.Query()["section"])
		f.writePage(w, r, f.computers)
	case mobilesPath:
		if !f.authorized(w, r) {
			return
		}
		if f.mobileFail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		f.writePage(w, r, f.mobiles)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeMDM) authorized(w http.ResponseWriter, r *http.Request) bool {
	if f.rejectFirst.CompareAndSwap(true, false) || r.Header.Get("Authorization") != "Bearer "+f.token() {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (f *fakeMDM) writePage(w http.ResponseWriter, r *http.Request, rows []map[string]interface{}) {
	pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page-size"))
	start := pageNum * size
	if start > len(rows) {
		start = len(rows)
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	body := map[string]interface{}{"results": rows[start:end]}
	if !f.omitTotal {
		body["totalCount"] = len(rows)
	}
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, f *fakeMDM) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewClient(config.MDMConfig{BaseURL: srv.URL + "/", ClientID: "id", ClientSecret: "secret", PageSize: 1, Timeout: "5s"})
}

func TestSanitizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                             "",
		" https://mdm.example.com/ ":   "https://mdm.example.com",
		"https://mdm.example.com:8443": "https://mdm.example.com:8443",
	}
	for raw, want := range cases {
		assert.Equal(t, want, sanitizeBaseURL(raw), "sanitizeBaseURL(%q)", raw)
	}
}

func TestFetchAll(t *testing.T) {
	f := newFakeMDM(t)
	c := newTestClient(t, f)

	idx, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	ids := []string{}
	for _, r := range idx.Records() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"computer_1042", "computer_7", "mobile_88"}, ids)

	lab, err := idx.Lookup("computer_1042")
	require.NoError(t, err)
	assert.Equal(t, "16GB", lab.RAM)
	assert.Equal(t, "512GB", lab.Storage)
	assert.Equal(t, inventory.ManagedYes, lab.Managed)

	imac, err := idx.Lookup("computer_7")
	require.NoError(t, err)
	assert.Equal(t, "", imac.Storage)
	assert.Equal(t, "", imac.Model)

	ipad, err := idx.Lookup("mobile_88")
	require.NoError(t, err)
	assert.Equal(t, "32GB", ipad.Storage)
	assert.Equal(t, inventory.ManagedNotReported, ipad.Managed)

	assert.Equal(t, int32(1), f.exchanges.Load())
	assert.Equal(t, StateValid, c.tokens.State())
}

func TestFetchAllWithoutTotalCount(t *testing.T) {
	f := newFakeMDM(t)
	f.omitTotal = true
	f.computers = append(f.computers, map[string]interface{}{
		"id":      "9",
		"general": map[string]interface{}{"name": "Library-Mini"},
	})
	c := newTestClient(t, f)

	idx, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())
	_, err = idx.Lookup("computer_9")
	assert.NoError(t, err)
}

func TestFetchAllSkipsRepeatedRows(t *testing.T) {
	f := newFakeMDM(t)
	f.computers = append(f.computers, map[string]interface{}{
		"id":      "7",
		"general": map[string]interface{}{"name": "Office-iMac moved"},
	})
	f.mobiles = append(f.mobiles, f.mobiles[0])
	c := newTestClient(t, f)

	idx, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	imac, err := idx.Lookup("computer_7")
	require.NoError(t, err)
	assert.Equal(t, "Office-iMac", imac.Name)
}

func TestLastPage(t *testing.T) {
	cases := []struct {
		name                          string
		total, got, fetched, pageSize int
		want                          bool
	}{
		{"empty page", 10, 0, 4, 2, true},
		{"total reached", 4, 2, 4, 2, true},
		{"total pending", 10, 2, 4, 2, false},
		{"no total, full page", 0, 2, 4, 2, false},
		{"no total, short page", 0, 1, 5, 2, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, lastPage(tc.total, tc.got, tc.fetched, tc.pageSize), tc.name)
	}
}

func TestFetchAllRefreshesRejectedToken(t *testing.T) {
	f := newFakeMDM(t)
	f.rejectFirst.Store(true)
	c := newTestClient(t, f)

	idx, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, int32(2), f.exchanges.Load())
}

func TestFetchAllAuthFailure(t *testing.T) {
	f := newFakeMDM(t)
	f.tokenStatus = http.StatusUnauthorized
	c := newTestClient(t, f)

	idx, err := c.FetchAll(context.Background())
	assert.Nil(t, idx)
	var fetchErr *InventoryFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, inventory.ClassComputer, fetchErr.Class)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Status, "401")
	assert.Equal(t, StateUnauthenticated, c.tokens.State())
}

func TestFetchAllMobileFailureDropsEverything(t *testing.T) {
	f := newFakeMDM(t)
	f.mobileFail = true
	c := newTestClient(t, f)

	idx, err := c.FetchAll(context.Background())
	assert.Nil(t, idx)
	var fetchErr *InventoryFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, inventory.ClassMobile, fetchErr.Class)
	assert.Contains(t, fetchErr.Error(), "500")
}

func TestTokenSingleExchange(t *testing.T) {
	f := newFakeMDM(t)
	f.tokenDelay = 50 * time.Millisecond
	c := newTestClient(t, f)

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := c.tokens.Token(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.exchanges.Load())
	for _, tok := range tokens {
		assert.Equal(t, "tok-1", tok)
	}
}

func TestTokenSharedFailure(t *testing.T) {
	f := newFakeMDM(t)
	f.tokenStatus = http.StatusForbidden
	f.tokenDelay = 50 * time.Millisecond
	c := newTestClient(t, f)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.tokens.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Contains(t, authErr.Error(), "invalid_client")
		assert.Contains(t, authErr.Status, "403")
	}
	assert.Equal(t, int32(1), f.attempts.Load())
	assert.Equal(t, StateUnauthenticated, c.tokens.State())
}

func TestTokenInvalidate(t *testing.T) {
	f := newFakeMDM(t)
	tc := newTestClient(t, f).tokens
	ctx := context.Background()

	assert.Equal(t, StateUnauthenticated, tc.State())
	tok, err := tc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateValid, tc.State())

	tc.Invalidate("some-other-token")
	assert.Equal(t, StateValid, tc.State())

	tc.Invalidate(tok)
	assert.Equal(t, StateStale, tc.State())

	tok2, err := tc.Token(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, tok, tok2)
	assert.Equal(t, StateValid, tc.State())
}

func TestTokenMissingCredentials(t *testing.T) {
	tc := NewTokenCache(nil, "https://mdm.example.com", "", "")
	_, err := tc.Token(context.Background())
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}
