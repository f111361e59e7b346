package main

import (
	"context"
	"testing"
	"time"

	"bookkeeping/config"
	"bookkeeping/database"
	"bookkeeping/services"
	"bookkeeping/utils"
)

func TestBuildNotifierDisabled(t *testing.T) {
	db, err := database.NewDatabase(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, utils.DiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	notifier, closers, err := buildNotifier(&config.Config{}, db, utils.DiscardLogger())
	if err != nil {
		t.Fatalf("buildNotifier: %v", err)
	}
	if _, ok := notifier.(services.NopNotifier); !ok {
		t.Errorf("notifier = %T, want NopNotifier", notifier)
	}
	if len(closers) != 0 {
		t.Errorf("closers = %v", closers)
	}
}

func TestBuildNotifierWithEmail(t *testing.T) {
	db, err := database.NewDatabase(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, utils.DiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg := &config.Config{SMTP: config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}}
	notifier, _, err := buildNotifier(cfg, db, utils.DiscardLogger())
	if err != nil {
		t.Fatalf("buildNotifier: %v", err)
	}
	list, ok := notifier.(services.Notifiers)
	if !ok || len(list) != 1 {
		t.Fatalf("notifier = %#v", notifier)
	}
	if _, ok := list[0].(*services.EmailService); !ok {
		t.Errorf("notifier[0] = %T", list[0])
	}
}

func TestPurgeSessionsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		purgeSessions(ctx, nil, utils.DiscardLogger())
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purgeSessions did not stop")
	}
}
