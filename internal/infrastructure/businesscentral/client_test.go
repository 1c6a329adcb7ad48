package businesscentral

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

type testBC struct {
	client    *Client
	tokenHits atomic.Int32
	apiHits   atomic.Int32

	mu     sync.Mutex
	delays []time.Duration
}

func (b *testBC) recordedDelays() []time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]time.Duration(nil), b.delays...)
}

// newTestBC levanta un servidor que atiende el endpoint de token y delega el resto en api.
func newTestBC(t *testing.T, api http.HandlerFunc, mutate ...func(*Config)) *testBC {
	t.Helper()
	b := &testBC{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/oauth2/v2.0/token") {
			b.tokenHits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`)
			return
		}
		b.apiHits.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		api(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := Config{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		Environment:  "Production",
		CompanyID:    "c1",
		APIHost:      srv.URL,
		LoginHost:    srv.URL,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	b.client = NewClient(cfg, WithSleeper(func(_ context.Context, d time.Duration) error {
		b.mu.Lock()
		b.delays = append(b.delays, d)
		b.mu.Unlock()
		return nil
	}))
	return b
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

const salesOrderJSON = `{"id":"so1","number":"SO-1001","status":"Open","fullyShipped":false,"lastModifiedDateTime":"2024-03-01T10:00:00Z","@odata.etag":"W/\"JzQ0O0\""}`

// ─── Reintentos ───────────────────────────────────────────────────────────────

func TestDo_RetriesTooManyRequestsWithBackoff(t *testing.T) {
	var calls atomic.Int32
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeJSON(w, http.StatusTooManyRequests, `{"error":"throttled"}`)
			return
		}
		writeJSON(w, http.StatusOK, salesOrderJSON)
	})

	order, err := b.client.GetSalesOrder(context.Background(), "so1")

	require.NoError(t, err)
	assert.Equal(t, "SO-1001", order.Number)
	assert.Equal(t, `W/"JzQ0O0"`, order.ETag)
	require.NotNil(t, order.LastModified)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, b.recordedDelays())
}

func TestDo_ExhaustedAttemptsSurfaceTransient(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"error":"down"}`)
	})

	_, err := b.client.GetSalesOrder(context.Background(), "so1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, erp.ErrTransient))
	assert.Equal(t, int32(5), b.apiHits.Load())
	assert.Equal(t,
		[]time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second},
		b.recordedDelays())
}

func TestDo_NotFoundIsNotRetried(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":{"code":"Internal_RecordNotFound"}}`)
	})

	_, err := b.client.GetSalesOrder(context.Background(), "gone")

	assert.True(t, errors.Is(err, erp.ErrNotFound))
	assert.Equal(t, int32(1), b.apiHits.Load())
	assert.Empty(t, b.recordedDelays())
}

func TestDo_BadRequestSurfacesBody(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":{"message":"Item 1000 is blocked"}}`)
	})

	_, err := b.client.CreateSalesOrderLine(context.Background(), "so1", erp.SalesOrderLineInput{
		ItemNumber: "1000", Quantity: decimal.NewFromInt(1),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, erp.ErrBadRequest))
	var apiErr *erp.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Item 1000 is blocked")
	assert.Equal(t, int32(1), b.apiHits.Load())
}

func TestDo_UnauthorizedIsNotRetried(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := b.client.GetSalesOrder(context.Background(), "so1")

	assert.True(t, errors.Is(err, erp.ErrCredentialsRejected))
	assert.Equal(t, int32(1), b.apiHits.Load())
}

func TestDo_CancelledContextStopsRetrying(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	b.client.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := b.client.GetSalesOrder(ctx, "so1")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), b.apiHits.Load())
}

// ─── Credenciales y token ─────────────────────────────────────────────────────

func TestMissingCredentials_NoNetworkCall(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, salesOrderJSON)
	}, func(c *Config) { c.ClientSecret = "" })

	_, err := b.client.GetSalesOrder(context.Background(), "so1")
	assert.ErrorIs(t, err, erp.ErrCredentialsMissing)

	_, err = b.client.ResolveCompany(context.Background())
	assert.ErrorIs(t, err, erp.ErrCredentialsMissing)

	assert.Equal(t, int32(0), b.tokenHits.Load())
	assert.Equal(t, int32(0), b.apiHits.Load())
}

func TestToken_IsCachedAcrossCalls(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, salesOrderJSON)
	})

	for i := 0; i < 3; i++ {
		_, err := b.client.GetSalesOrder(context.Background(), "so1")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), b.tokenHits.Load())
	assert.Equal(t, int32(3), b.apiHits.Load())
}

// ─── Resolución de empresa ────────────────────────────────────────────────────

func TestResolveCompany_ConfiguredIDSkipsNetwork(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("llamada inesperada a %s", r.URL.Path)
	})

	company, err := b.client.ResolveCompany(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "c1", company.ID)
	assert.Equal(t, "Production", company.Environment)
	assert.Equal(t, int32(0), b.apiHits.Load())
}

func TestResolveCompany_FallsBackAcrossEnvironments(t *testing.T) {
	var requested []string
	var mu sync.Mutex
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/v2.0/tenant/Staging/api/v2.0/companies":
			writeJSON(w, http.StatusNotFound, `{"error":{"code":"NoEnvironment"}}`)
		case "/v2.0/tenant/Production/api/v2.0/companies":
			writeJSON(w, http.StatusOK, `{"value":[{"id":"x1","name":"Otra Empresa"}]}`)
		case "/v2.0/tenant/Sandbox/api/v2.0/companies":
			writeJSON(w, http.StatusOK, `{"value":[{"id":"c-42","name":"CRONUS","displayName":"Cronus Tunisie"}]}`)
		default:
			writeJSON(w, http.StatusNotFound, `{}`)
		}
	}, func(c *Config) {
		c.CompanyID = ""
		c.CompanyName = "CRONUS TUNISIE"
		c.Environment = "Staging"
	})

	company, err := b.client.ResolveCompany(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c-42", company.ID)
	assert.Equal(t, "Sandbox", company.Environment)
	assert.Len(t, requested, 3)

	again, err := b.client.ResolveCompany(context.Background())
	require.NoError(t, err)
	assert.Equal(t, company, again)
	assert.Len(t, requested, 3, "la empresa resuelta debe quedar en caché")
}

func TestResolveCompany_NotFoundAnywhere(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"value":[]}`)
	}, func(c *Config) {
		c.CompanyID = ""
		c.CompanyName = "Nadie"
	})

	_, err := b.client.ResolveCompany(context.Background())

	assert.ErrorIs(t, err, erp.ErrNotFound)
	assert.Equal(t, int32(4), b.apiHits.Load())
}

func TestResolveCompany_ConcurrentCallersShareOneResolution(t *testing.T) {
	arrived := make(chan struct{}, 16)
	release := make(chan struct{})
	var listHits atomic.Int32
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		listHits.Add(1)
		arrived <- struct{}{}
		<-release
		writeJSON(w, http.StatusOK, `{"value":[{"id":"c-7","name":"CRONUS"}]}`)
	}, func(c *Config) {
		c.CompanyID = ""
		c.CompanyName = "cronus"
	})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*erp.Company, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = b.client.ResolveCompany(context.Background())
		}(i)
	}

	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("la resolución nunca llegó al servidor")
	}

	// con un sondeo en vuelo la caché sigue siendo legible
	done := make(chan *erp.Company, 1)
	go func() { done <- b.client.cachedCompany() }()
	select {
	case got := <-done:
		assert.Nil(t, got)
	case <-time.After(time.Second):
		t.Fatal("cachedCompany bloqueado por la resolución en curso")
	}

	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "c-7", results[i].ID)
	}
	assert.Equal(t, int32(1), listHits.Load())
}

func TestResolveCompany_CallerCancellationDoesNotFailOthers(t *testing.T) {
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		<-release
		writeJSON(w, http.StatusOK, `{"value":[{"id":"c-9","name":"CRONUS"}]}`)
	}, func(c *Config) {
		c.CompanyID = ""
		c.CompanyName = "CRONUS"
	})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := b.client.ResolveCompany(ctx)
		first <- err
	}()
	<-arrived

	second := make(chan *erp.Company, 1)
	go func() {
		company, err := b.client.ResolveCompany(context.Background())
		assert.NoError(t, err)
		second <- company
	}()
	cancel()
	close(release)

	require.NoError(t, <-first)
	company := <-second
	require.NotNil(t, company)
	assert.Equal(t, "c-9", company.ID)
}

func TestEnvironments_DeduplicatesCaseInsensitive(t *testing.T) {
	c := NewClient(Config{Environment: "sandbox"})
	assert.Equal(t, []string{"sandbox", "Production", "Development", "Test"}, c.environments())
}

// ─── Construcción de requests ─────────────────────────────────────────────────

func TestFindShipments_EscapesODataLiteral(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2.0/tenant/Production/api/v2.0/companies(c1)/salesShipments", r.URL.Path)
		assert.Equal(t, "orderNumber eq 'SO''1'", r.URL.Query().Get("$filter"))
		writeJSON(w, http.StatusOK, `{"value":[{"id":"sh1","number":"S-1"}]}`)
	})

	shipments, err := b.client.FindShipmentsByOrderNumber(context.Background(), "SO'1")

	require.NoError(t, err)
	assert.Equal(t, []erp.Shipment{{ID: "sh1", Number: "S-1"}}, shipments)
}

func TestCreateSalesOrderLine_SendsNumericQuantity(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("client-request-id"))
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var body map[string]any
		require.NoError(t, dec.Decode(&body))
		assert.Equal(t, "Item", body["lineType"])
		assert.Equal(t, "1000", body["lineObjectNumber"])
		assert.Equal(t, json.Number("2.5"), body["quantity"])
		_, hasItemID := body["itemId"]
		assert.False(t, hasItemID)
		writeJSON(w, http.StatusCreated, `{"id":"l1","@odata.etag":"W/\"l1\""}`)
	})

	line, err := b.client.CreateSalesOrderLine(context.Background(), "so1", erp.SalesOrderLineInput{
		ItemNumber: "1000", ItemID: "guid", Quantity: decimal.RequireFromString("2.5"),
	})

	require.NoError(t, err)
	assert.Equal(t, "l1", line.ID)
	assert.Equal(t, `W/"l1"`, line.ETag)
}

func TestUpdateSalesOrderLineLocation_SendsIfMatch(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v2.0/tenant/Production/api/v2.0/companies(c1)/salesOrders(so1)/salesOrderLines(l1)", r.URL.Path)
		assert.Equal(t, `W/"l1"`, r.Header.Get("If-Match"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "loc-9", body["locationId"])
		writeJSON(w, http.StatusOK, `{}`)
	})

	err := b.client.UpdateSalesOrderLineLocation(context.Background(), "so1", "l1", `W/"l1"`, "loc-9")
	require.NoError(t, err)
}

func TestDeleteSalesOrder_UsesWildcardIfMatch(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "*", r.Header.Get("If-Match"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, b.client.DeleteSalesOrder(context.Background(), "so1"))
}

func TestFindInvoiceByOrderNumber(t *testing.T) {
	b := newTestBC(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$filter") == "orderNumber eq 'SO-1'" {
			writeJSON(w, http.StatusOK, `{"value":[{"id":"inv1","number":"103001","orderNumber":"SO-1","invoiceDate":"2024-03-05",
				"totalAmountExcludingTax":100.5,"totalTaxAmount":19.1,"totalAmountIncludingTax":119.6}]}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"value":[]}`)
	})

	inv, err := b.client.FindInvoiceByOrderNumber(context.Background(), "SO-1")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, "103001", inv.Number)
	assert.True(t, inv.TotalAmountIncludingTax.Equal(decimal.RequireFromString("119.6")))
	require.NotNil(t, inv.InvoiceDate)

	none, err := b.client.FindInvoiceByOrderNumber(context.Background(), "SO-2")
	require.NoError(t, err)
	assert.Nil(t, none)
}
