package rtdb

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestReadEvents(t *testing.T) {
	body := strings.Join([]string{
		": comment",
		"event: put",
		`data: {"path":"/","data":{"a":1}}`,
		"",
		"event: keep-alive",
		"data: null",
		"",
		"event: patch",
		`data: {"path":"/",`,
		`data: "data":{"b":2}}`,
		"",
		"",
	}, "\n")

	type ev struct{ event, data string }
	var got []ev
	err := readEvents(strings.NewReader(body), func(event, data string) error {
		got = append(got, ev{event, data})
		return nil
	})
	if err != nil {
		t.Fatalf("readEvents() error = %v", err)
	}

	want := []ev{
		{"put", `{"path":"/","data":{"a":1}}`},
		{"keep-alive", "null"},
		{"patch", "{\"path\":\"/\",\n\"data\":{\"b\":2}}"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("readEvents() = %q, want %q", got, want)
	}
}

func TestReadEvents_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := readEvents(strings.NewReader("event: a\n\nevent: b\n\n"), func(string, string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("readEvents() = %v after %d calls", err, calls)
	}
}

func TestApplyEvent(t *testing.T) {
	tree, err := applyEvent(nil, eventPut, `{"path":"/","data":{"r1":{"timestamp":1}}}`)
	if err != nil {
		t.Fatalf("put root: %v", err)
	}
	tree, err = applyEvent(tree, eventPut, `{"path":"/r2","data":{"timestamp":2}}`)
	if err != nil {
		t.Fatalf("put child: %v", err)
	}
	tree, err = applyEvent(tree, eventPatch, `{"path":"/r1","data":{"humidity":55,"timestamp":null}}`)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	want := map[string]any{
		"r1": map[string]any{"humidity": 55.0},
		"r2": map[string]any{"timestamp": 2.0},
	}
	if !reflect.DeepEqual(tree, want) {
		t.Errorf("tree = %v, want %v", tree, want)
	}

	tree, err = applyEvent(tree, eventPut, `{"path":"/","data":null}`)
	if err != nil || tree != nil {
		t.Errorf("put null root = %v, %v; want nil", tree, err)
	}

	if _, err := applyEvent(nil, eventPatch, `{"path":"/","data":5}`); err == nil {
		t.Error("patch with non-object data should fail")
	}
	if _, err := applyEvent(nil, eventPut, `not json`); err == nil {
		t.Error("malformed payload should fail")
	}
}
