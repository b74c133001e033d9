// Copyright (c) 2025 BVK Chaitanya

package pushover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

var testingKeys *Keys

func checkKeys() bool {
	if testingKeys != nil {
		return true
	}
	data, err := os.ReadFile("pushover-keys.json")
	if err != nil {
		return false
	}
	s := new(Keys)
	if err := json.Unmarshal(data, s); err != nil {
		return false
	}
	testingKeys = s
	return true
}

func TestSendMessage(t *testing.T) {
	if !checkKeys() {
		t.Skip("no keys")
		return
	}

	c, err := New(testingKeys, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SendMessage(context.Background(), time.Now(), t.Name()); err != nil {
		t.Fatal(err)
	}
}

func TestFakeServer(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		if got["user"] == "bad-user" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"user":"invalid","errors":["user identifier is invalid"],"status":0}`))
			return
		}
		w.Write([]byte(`{"status":1,"request":"647d2300-702c-4b38-8b2f-d56326ae460b"}`))
	}))
	defer srv.Close()

	keys := &Keys{ApplicationKey: "app", UserKey: "user"}
	c, err := New(keys, &Options{APIURL: srv.URL, Title: "cryptoalerts"})
	if err != nil {
		t.Fatal(err)
	}

	at := time.Unix(1700000000, 0)
	if err := c.SendMessage(context.Background(), at, "hello"); err != nil {
		t.Fatal(err)
	}
	if got["token"] != "app" || got["message"] != "hello" || got["title"] != "cryptoalerts" {
		t.Fatalf("unexpected request %v", got)
	}
	if v, _ := got["timestamp"].(float64); int64(v) != at.Unix() {
		t.Fatalf("want timestamp %d, got %v", at.Unix(), got["timestamp"])
	}

	bad, err := New(&Keys{ApplicationKey: "app", UserKey: "bad-user"}, &Options{APIURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := bad.SendMessage(context.Background(), at, "hello"); err == nil {
		t.Fatalf("want error for invalid user")
	}
}
