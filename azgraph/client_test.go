package azgraph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/llamazure/azrest-go/azrest"
	azjson "github.com/llamazure/azrest-go/libaf/json"
)

func decodeJSONBody(r *http.Request, v any) error {
	return azjson.NewDecoder(r.Body).Decode(v)
}

func newTestGraphClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rt, err := azrest.NewClient("test-token",
		azrest.WithBaseURL(srv.URL),
		azrest.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("azrest.NewClient: %v", err)
	}
	return NewClient(rt)
}

// Chaining pages via skipToken preserves the append law: result row
// count equals the sum of page counts, and $skip in the caller's
// options is removed before the second page is requested.
func TestQuery_SkipTokenPagination(t *testing.T) {
	var page2Options map[string]any
	var callCount int

	c := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		callCount++
		var req wireRequest
		if err := decodeJSONBody(r, &req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if callCount == 1 {
			fmt.Fprint(w, `{"totalRecords":2,"count":1,"data":[{"id":"0"}],"$skipToken":"continue"}`)
			return
		}
		page2Options = req.Options
		fmt.Fprint(w, `{"totalRecords":2,"count":1,"data":[{"id":"1"}]}`)
	})

	req := NewReq("Resources | project id")
	req.Options["$skip"] = 10
	res, resErr, err := c.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resErr != nil {
		t.Fatalf("unexpected ResErr: %+v", resErr)
	}
	if res.Count != 2 {
		t.Errorf("Count = %d, want 2", res.Count)
	}
	if len(res.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2", len(res.Data))
	}
	if res.Data[0]["id"] != "0" || res.Data[1]["id"] != "1" {
		t.Errorf("Data = %v, want arrival order [0 1]", res.Data)
	}
	if _, present := page2Options["$skip"]; present {
		t.Errorf("second page still carried $skip: %v", page2Options)
	}
	if page2Options["$skipToken"] != "continue" {
		t.Errorf("second page missing $skipToken: %v", page2Options)
	}
}

func TestQuery_InBandErrorFromBody(t *testing.T) {
	c := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":{"code":"BadRequest","message":"bad kql","details":null}}`)
	})

	_, resErr, err := c.Query(context.Background(), NewReq("this is not kql"))
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if resErr == nil {
		t.Fatal("expected a ResErr")
	}
	if resErr.Code != "BadRequest" {
		t.Errorf("Code = %q, want BadRequest", resErr.Code)
	}
}

func TestQuery_InBandErrorFromHTTPStatus(t *testing.T) {
	c := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":"InvalidQuery","message":"nope"}}`)
	})

	_, resErr, err := c.Query(context.Background(), NewReq("bad"))
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if resErr == nil || resErr.Code != "InvalidQuery" {
		t.Fatalf("resErr = %+v", resErr)
	}
}

func TestSubscriptions(t *testing.T) {
	c := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"value":[{"subscriptionId":"s1","displayName":"One","state":"Enabled"}]}`)
	})

	subs, err := c.Subscriptions(context.Background())
	if err != nil {
		t.Fatalf("Subscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].SubscriptionID != "s1" {
		t.Fatalf("subs = %+v", subs)
	}
}

func TestResAdd(t *testing.T) {
	a := Res{Count: 1, Data: []map[string]any{{"id": "0"}}, SkipToken: "stale"}
	b := Res{Count: 1, Data: []map[string]any{{"id": "1"}}, SkipToken: "fresh"}
	sum := a.Add(b)
	if sum.Count != 2 {
		t.Errorf("Count = %d, want 2", sum.Count)
	}
	if len(sum.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2", len(sum.Data))
	}
	if sum.SkipToken != "fresh" {
		t.Errorf("SkipToken = %q, want b's trailing token", sum.SkipToken)
	}
}
