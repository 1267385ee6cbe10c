package azrest

import (
	"context"
	"net/http"
	"testing"

	azjson "github.com/llamazure/azrest-go/libaf/json"
)

// Batch of two subscription queries; server returns responses keyed by
// the assigned ids in reverse order.
func TestCallBatch_TwoEntriesOutOfOrder(t *testing.T) {
	c, _ := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		var req AzBatch
		if err := azjson.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding batch request: %v", err)
		}
		if len(req.Requests) != 2 {
			t.Fatalf("got %d sub-requests, want 2", len(req.Requests))
		}

		// Respond with the second submitted request's response first.
		resp := AzBatchResponses{
			Responses: []AzBatchResponse{
				{
					Name:           req.Requests[1].Name,
					HTTPStatusCode: 200,
					Content:        azjson.RawMessage(`{"value":[{"id":"sub1"}]}`),
				},
				{
					Name:           req.Requests[0].Name,
					HTTPStatusCode: 200,
					Content:        azjson.RawMessage(`{"value":[{"id":"sub0"}]}`),
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		data, _ := azjson.Marshal(resp)
		w.Write(data)
	})

	type subscription struct {
		ID string `json:"id"`
	}

	req0 := Get[AzList[subscription]]("get-sub0", "/subscriptions/0")
	req1 := Get[AzList[subscription]]("get-sub1", "/subscriptions/1")

	b, ids := Gather("two-subs", "2020-01-01", []Req[AzList[subscription]]{req0, req1})
	results, err := CallBatch(context.Background(), c, b)
	if err != nil {
		t.Fatalf("CallBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, id := range ids {
		res, ok := results[id]
		if !ok {
			t.Fatalf("missing result for id %q", id)
		}
		if res.Err != nil {
			t.Fatalf("unexpected error for id %q: %v", id, res.Err)
		}
		list, ok := res.Value.(AzList[subscription])
		if !ok {
			t.Fatalf("result for id %q has type %T, want AzList[subscription]", id, res.Value)
		}
		if len(list.Value) != 1 {
			t.Fatalf("result for id %q has %d values, want 1", id, len(list.Value))
		}
	}
}

func TestCallBatch_Empty(t *testing.T) {
	c, _ := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for an empty batch")
	})
	b := NewBatchReq("empty", "2020-01-01")
	_, err := CallBatch(context.Background(), c, b)
	if err != ErrEmptyBatch {
		t.Fatalf("err = %v, want ErrEmptyBatch", err)
	}
}

func TestCallBatch_SubResponseErrorIsInBand(t *testing.T) {
	c, _ := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		var req AzBatch
		azjson.NewDecoder(r.Body).Decode(&req)
		resp := AzBatchResponses{Responses: []AzBatchResponse{
			{
				Name:           req.Requests[0].Name,
				HTTPStatusCode: 404,
				Content:        azjson.RawMessage(`{"error":{"code":"NotFound","message":"nope"}}`),
			},
		}}
		data, _ := azjson.Marshal(resp)
		w.Write(data)
	})

	req := Get[widget]("get-it", "/widget")
	b, ids := Gather("one", "2020-01-01", []Req[widget]{req})
	results, err := CallBatch(context.Background(), c, b)
	if err != nil {
		t.Fatalf("CallBatch: %v", err)
	}
	res := results[ids[0]]
	if res.Err == nil {
		t.Fatal("expected an in-band error, got nil")
	}
	if !IsAzureError(res.Err) {
		t.Fatalf("expected AzureError, got %T: %v", res.Err, res.Err)
	}
}

func TestGather_AssignsIDsAndPreservesOrder(t *testing.T) {
	reqs := []Req[widget]{
		Get[widget]("a", "/a"),
		Get[widget]("b", "/b"),
		Get[widget]("c", "/c"),
	}
	b, ids := Gather("batch", "2020-01-01", reqs)
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	if len(ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" {
			t.Fatal("got empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
