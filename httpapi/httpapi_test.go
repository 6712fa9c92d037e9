package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"irbridge-go/board"
	"irbridge-go/boards"
	"irbridge-go/hwio/simio"
	"irbridge-go/store"
	"irbridge-go/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *simio.Hardware) {
	t.Helper()
	hw := simio.New()
	b := board.New(hw, store.NewMem(), boards.Compact)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	srv := httptest.NewServer(NewRouter(b))
	t.Cleanup(func() { srv.Close(); cancel() })
	return srv, hw
}

func post(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestInfoEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := get(t, srv, "/info")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info types.BoardInfo
	decodeInto(t, resp, &info)
	if !strings.HasPrefix(info.ID, "ir-bridge-") {
		t.Errorf("id = %q", info.ID)
	}
	if info.Variant != "compact" {
		t.Errorf("variant = %q", info.Variant)
	}
}

func TestPortsRoundTrip(t *testing.T) {
	srv, hw := newTestServer(t)

	resp := post(t, srv, "/ports/configure", `{"gpio":13,"mode":"ir_output","name":"tv"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("configure status = %d", resp.StatusCode)
	}
	var snap types.PortSnapshot
	decodeInto(t, resp, &snap)
	if snap.GPIO != 13 || snap.Role != types.RoleIrOutput || snap.Label != "tv" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if hw.SenderOn(13) == nil {
		t.Fatal("sender not bound")
	}

	resp = get(t, srv, "/ports")
	var list struct {
		Ports []types.PortSnapshot `json:"ports"`
		Total int                  `json:"total"`
	}
	decodeInto(t, resp, &list)
	if list.Total != 16 || len(list.Ports) != 16 {
		t.Fatalf("total = %d, len = %d", list.Total, len(list.Ports))
	}
}

func TestConfigureRejectsUnknownMode(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := post(t, srv, "/ports/configure", `{"gpio":13,"mode":"warp_drive"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestMalformedJSONIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := post(t, srv, "/ports/configure", `{"gpio": `)
	var body struct {
		Error string `json:"error"`
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	decodeInto(t, resp, &body)
	if body.Error != "malformed_request" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestSendIREndpoint(t *testing.T) {
	srv, hw := newTestServer(t)
	post(t, srv, "/ports/configure", `{"gpio":4,"mode":"ir_output"}`).Body.Close()

	resp := post(t, srv, "/send_ir", `{"gpio":4,"protocol":"samsung","code":"0xE0E040BF","bits":32}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	frames := hw.SenderOn(4).Frames()
	if len(frames) != 1 || frames[0].Value != 0xE0E040BF {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestSendIRUnknownPortIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := post(t, srv, "/send_ir", `{"gpio":99,"protocol":"nec","code":"1234"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSendIRBadCode(t *testing.T) {
	srv, _ := newTestServer(t)
	post(t, srv, "/ports/configure", `{"gpio":4,"mode":"ir_output"}`).Body.Close()
	resp := post(t, srv, "/send_ir", `{"gpio":4,"protocol":"nec","code":"zzzz"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestLearningEndpoints(t *testing.T) {
	srv, hw := newTestServer(t)
	post(t, srv, "/ports/configure", `{"gpio":34,"mode":"ir_input"}`).Body.Close()
	post(t, srv, "/learning/start", `{"port":34}`).Body.Close()

	hw.ActiveReceiver().Inject("nec", 0x20DF10EF, 32)
	time.Sleep(50 * time.Millisecond)

	resp := get(t, srv, "/learning/status")
	var st types.LearningStatus
	decodeInto(t, resp, &st)
	if !st.Active || st.GPIO != 34 {
		t.Fatalf("status = %+v", st)
	}
	if st.Received == nil || st.Received.ValueHex != "0x20DF10EF" {
		t.Fatalf("received = %+v", st.Received)
	}

	post(t, srv, "/learning/stop", `{}`).Body.Close()
	resp = get(t, srv, "/learning/status")
	decodeInto(t, resp, &st)
	if st.Active {
		t.Fatal("active after stop")
	}
}

func TestSerialEndpoints(t *testing.T) {
	srv, hw := newTestServer(t)

	resp := post(t, srv, "/serial/send", `{"data":"x"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unconfigured send status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	post(t, srv, "/serial/config", `{"rx_pin":16,"tx_pin":17,"baud_rate":9600}`).Body.Close()
	hw.ActiveSerial().FeedRXAfter(15*time.Millisecond, []byte("%1POWR=1\r"))

	resp = post(t, srv, "/serial/send", `{"data":"%1POWR ?","line_ending":"cr","wait_ms":1000}`)
	var reply struct {
		Response string `json:"response"`
	}
	decodeInto(t, resp, &reply)
	if reply.Response != "%1POWR=1" {
		t.Fatalf("response = %q", reply.Response)
	}

	resp = get(t, srv, "/serial/status")
	var st types.SerialStatus
	decodeInto(t, resp, &st)
	if !st.Enabled || st.RxPin != 16 || st.TxPin != 17 {
		t.Fatalf("status = %+v", st)
	}
}

func TestAdoptEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := post(t, srv, "/adopt", `{"name":"lobby"}`)
	var id types.BoardIdentity
	decodeInto(t, resp, &id)
	if !id.Adopted || id.Name != "lobby" {
		t.Fatalf("identity = %+v", id)
	}
}
