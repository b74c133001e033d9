// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bvkgo/kv/kvmemdb"
	"github.com/go-telegram/bot/models"
)

var testingSecrets *Secrets

func checkSecrets() bool {
	if testingSecrets != nil {
		return true
	}
	data, err := os.ReadFile("telegram-creds.json")
	if err != nil {
		return false
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return false
	}
	if err := s.Check(); err != nil {
		return false
	}
	testingSecrets = s
	return true
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	if !checkSecrets() {
		t.Skip("no credentials")
		return
	}

	db := kvmemdb.New()
	c, err := New(ctx, db, testingSecrets, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Fatal(err)
		}
	}()

	t.Logf("Authorized on account %s with owner %s", c.BotUserName(), c.OwnerUserName())

	if err := c.SendMessage(ctx, time.Now(), "hello"); err != nil {
		t.Fatal(err)
	}
}

func TestGetCommand(t *testing.T) {
	c := new(Client)
	c.commandMap.Store("pause", &Command{
		Purpose: "Pauses a scanner",
		Handler: func(context.Context, []string) error { return nil },
	})

	newUpdate := func(text string, length int) *models.Update {
		return &models.Update{
			Message: &models.Message{
				Text: text,
				Entities: []models.MessageEntity{
					{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: length},
				},
			},
		}
	}

	cmd, args, handler, err := c.getCommand(newUpdate("/pause news  social", 6))
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "pause" || handler == nil || len(args) != 2 || args[0] != "news" || args[1] != "social" {
		t.Fatalf("unexpected command %q with args %v", cmd, args)
	}

	if cmd, _, _, err := c.getCommand(newUpdate("/pause@alertsbot news", 15)); err != nil || cmd != "pause" {
		t.Fatalf("want pause command addressed to the bot, got %q, %v", cmd, err)
	}

	if _, _, _, err := c.getCommand(newUpdate("/resume news", 7)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist for unknown command, got %v", err)
	}

	if _, _, _, err := c.getCommand(&models.Update{Message: &models.Message{Text: "hello"}}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for plain text, got %v", err)
	}
}

func TestSecrets(t *testing.T) {
	s := &Secrets{BotToken: "t", OwnerID: "owner", AdminID: "admin", OtherIDs: []string{"friend"}}
	if err := s.Check(); err != nil {
		t.Fatal(err)
	}
	if r := s.Receivers(); len(r) != 3 || r[0] != "owner" || r[2] != "friend" {
		t.Fatalf("unexpected receivers %v", r)
	}
	s.OtherIDs = append(s.OtherIDs, "owner")
	if err := s.Check(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for repeated owner, got %v", err)
	}
}

func TestFormatUptime(t *testing.T) {
	if s := FormatUptime(90 * time.Second); s != "1m30s" {
		t.Fatalf("want 1m30s, got %s", s)
	}
	if s := FormatUptime(50 * time.Hour); s != "2d2h0m0s" {
		t.Fatalf("want 2d2h0m0s, got %s", s)
	}
}
