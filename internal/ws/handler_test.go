package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/firelink/firebridge/internal/assist"
	"github.com/firelink/firebridge/internal/coordinator"
	"github.com/firelink/firebridge/internal/dom"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPeer struct {
	replies map[string]interface{}
}

func (p *scriptedPeer) Send(ctx context.Context, action string, params map[string]interface{}) (*coordinator.Result, error) {
	reply, ok := p.replies[action]
	if !ok {
		return nil, fmt.Errorf("%w: no reply scripted for %s", coordinator.ErrConnection, action)
	}
	return &coordinator.Result{Value: reply, DurationMS: 5}, nil
}

func (p *scriptedPeer) CancelActive() bool { return true }

type staticPages struct{}

func (staticPages) Content(ctx context.Context, pageURL string, limit int) string {
	return "static page text"
}

func (staticPages) HTML(ctx context.Context, pageURL string, limit int) string {
	return "<p>static</p>"
}

func dialTestHandler(t *testing.T, peer *scriptedPeer) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := dom.FromHTML(
		`<html><body><h1 id="title">Hello</h1><p id="p">text</p></body></html>`, nil)
	require.NoError(t, err)

	h := NewHandler(
		assist.New(peer, staticPages{}, 1000, 1000, nil),
		engine,
		dom.NewHighlighter(engine),
		nil,
	)

	router := gin.New()
	router.GET("/ws", h.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Welcome frame.
	var welcome map[string]interface{}
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "system", welcome["type"])

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg Message) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	var reply map[string]interface{}
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestPingPong(t *testing.T) {
	conn := dialTestHandler(t, &scriptedPeer{})

	reply := roundTrip(t, conn, Message{Type: TypePing, ID: "p1"})
	assert.Equal(t, "pong", reply["type"])
	assert.Equal(t, "p1", reply["id"])
}

func TestSummarizeReturnsResult(t *testing.T) {
	peer := &scriptedPeer{replies: map[string]interface{}{"summarize": "a summary"}}
	conn := dialTestHandler(t, peer)

	reply := roundTrip(t, conn, Message{Type: TypeSummarize, ID: "s1", URL: "http://example.com"})
	require.Equal(t, "result", reply["type"])
	assert.Equal(t, "s1", reply["id"])
	assert.Equal(t, "summarize", reply["action"])

	result := reply["result"].(map[string]interface{})
	assert.Equal(t, "a summary", result["result"])
}

func TestAssistantErrorCarriesCode(t *testing.T) {
	conn := dialTestHandler(t, &scriptedPeer{}) // nothing scripted: every send fails

	reply := roundTrip(t, conn, Message{Type: TypeAsk, ID: "a1", URL: "http://example.com", Question: "?"})
	require.Equal(t, "error", reply["type"])
	assert.Equal(t, "connection", reply["code"])
}

func TestApplyEditsAndUndoOverSocket(t *testing.T) {
	conn := dialTestHandler(t, &scriptedPeer{})

	reply := roundTrip(t, conn, Message{Type: TypeApplyEdits, ID: "e1", Ops: []dom.Op{
		{Action: dom.SetText, Selector: "#title", Value: "Changed"},
		{Action: dom.SetText, Selector: "#missing", Value: "x"},
	}})
	require.Equal(t, "edit_results", reply["type"])

	summary := reply["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["applied"])
	assert.Equal(t, float64(1), summary["failed"])

	reply = roundTrip(t, conn, Message{Type: TypeUndo, ID: "u1"})
	require.Equal(t, "undo_results", reply["type"])

	// Stack is empty now.
	reply = roundTrip(t, conn, Message{Type: TypeUndo, ID: "u2"})
	require.Equal(t, "error", reply["type"])
	assert.Equal(t, "nothing_to_undo", reply["code"])
}

func TestHighlightOverSocket(t *testing.T) {
	conn := dialTestHandler(t, &scriptedPeer{})

	reply := roundTrip(t, conn, Message{Type: TypeHighlight, ID: "h1", Selector: "#title"})
	require.Equal(t, "highlight_result", reply["type"])
	assert.Equal(t, true, reply["shown"])

	reply = roundTrip(t, conn, Message{Type: TypeHighlight, ID: "h2", Selector: "#missing"})
	assert.Equal(t, false, reply["shown"])

	reply = roundTrip(t, conn, Message{Type: TypeClearHighlight, ID: "h3"})
	assert.Equal(t, false, reply["shown"])
}

func TestLoadDocumentOverSocket(t *testing.T) {
	conn := dialTestHandler(t, &scriptedPeer{})

	reply := roundTrip(t, conn, Message{Type: TypeLoadDocument, ID: "l1",
		HTML: `<html><body><div id="fresh"></div></body></html>`})
	assert.Equal(t, "document_loaded", reply["type"])
}

func TestCancelOverSocket(t *testing.T) {
	conn := dialTestHandler(t, &scriptedPeer{})

	reply := roundTrip(t, conn, Message{Type: TypeCancel, ID: "c1"})
	require.Equal(t, "cancel_result", reply["type"])
	assert.Equal(t, true, reply["cancelled"])
}

func TestUnknownTypeRejected(t *testing.T) {
	conn := dialTestHandler(t, &scriptedPeer{})

	reply := roundTrip(t, conn, Message{Type: "defragment", ID: "x1"})
	require.Equal(t, "error", reply["type"])
	assert.Equal(t, "unknown_type", reply["code"])
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{coordinator.ErrTimeout, "timeout"},
		{coordinator.ErrDisconnected, "disconnected"},
		{coordinator.ErrCancelled, "cancelled"},
		{coordinator.ErrConnection, "connection"},
		{fmt.Errorf("wrapped: %w", coordinator.ErrTimeout), "timeout"},
		{&coordinator.PeerError{Message: "model refused"}, "peer_error"},
		{dom.ErrNothingToUndo, "nothing_to_undo"},
		{dom.ErrTargetNotFound, "target_not_found"},
		{errors.New("anything else"), "internal"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, errorCode(tc.err), tc.err.Error())
	}
}

func TestSummarizeCounts(t *testing.T) {
	s := summarize([]dom.OpResult{
		{Index: 0, Success: true},
		{Index: 1, Success: false, Error: "nope"},
		{Index: 2, Success: true},
	})
	assert.Equal(t, 2, s.Applied)
	assert.Equal(t, 1, s.Failed)
	assert.Len(t, s.Results, 3)
}
