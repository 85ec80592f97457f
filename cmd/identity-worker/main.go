package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/linkup/backend/internal/services"
	"github.com/linkup/backend/internal/store"
)

// Eventarc delivers CloudEvents; for Firebase Auth user events the body
// carries the user record. Minimal fields we need: uid, email, display
// name, photo URL.
type authUserEvent struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

// cloudEventEnvelope handles Eventarc structured content mode where the
// user record is nested inside a "data" field.
type cloudEventEnvelope struct {
	Data authUserEvent `json:"data"`
}

func main() {
	addr := getEnv("PORT", "8080")

	projectID := os.Getenv("FIREBASE_PROJECT_ID")
	if projectID == "" {
		log.Fatal("FIREBASE_PROJECT_ID env var is not set")
	}

	ctx := context.Background()
	st, err := store.NewFirestoreStore(ctx, projectID, os.Getenv("FIREBASE_CREDENTIALS_JSON"))
	if err != nil {
		log.Fatalf("firestore init failed: %v", err)
	}
	defer st.Close()

	friendship := services.NewFriendshipService(st)
	profiles := services.NewProfileService(st, services.NoopIdentitySource{}, friendship)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	http.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		handleAuthEvent(w, r, profiles)
	})

	log.Printf("identity-worker listening on :%s", addr)
	log.Fatal(http.ListenAndServe(":"+addr, nil))
}

func handleAuthEvent(w http.ResponseWriter, r *http.Request, profiles *services.ProfileService) {
	// Only accept POSTs from Eventarc.
	if r.Method != http.MethodPost {
		log.Printf("[worker] rejected non-POST method=%s", r.Method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Log Eventarc/CloudEvent headers for diagnostics.
	ceType := r.Header.Get("Ce-Type")
	ceSource := r.Header.Get("Ce-Source")
	contentType := r.Header.Get("Content-Type")
	log.Printf("[worker] event received: Ce-Type=%s Ce-Source=%s Content-Type=%s",
		ceType, ceSource, contentType)

	// Read raw body so we can log it and attempt multiple parse strategies.
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[worker] failed to read request body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	log.Printf("[worker] raw event body (%d bytes): %s", len(rawBody), string(rawBody))

	// Try to decode as a direct user record (binary content mode).
	var ev authUserEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		log.Printf("[worker] failed to decode event body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// If uid is empty, the event may be wrapped in a CloudEvent envelope
	// (structured content mode) with the user record nested under "data".
	if ev.UID == "" {
		log.Printf("[worker] top-level uid empty, trying CloudEvent envelope parse")
		var envelope cloudEventEnvelope
		if err := json.Unmarshal(rawBody, &envelope); err == nil && envelope.Data.UID != "" {
			ev = envelope.Data
			log.Printf("[worker] successfully parsed from CloudEvent envelope: uid=%s", ev.UID)
		} else {
			log.Printf("[worker] CloudEvent envelope parse also failed or empty: uid=%q err=%v",
				envelope.Data.UID, err)
		}
	}

	if ev.UID == "" {
		log.Printf("[worker] skipping event: uid is empty after all parse attempts")
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	// Ce-Type distinguishes user.created from user.deleted. Both transitions
	// ack regardless of outcome; a retry would not help a malformed record.
	if strings.HasSuffix(ceType, ".deleted") {
		log.Printf("[worker] user deleted: uid=%s", ev.UID)
		profiles.OnIdentityDeleted(ctx, ev.UID)
	} else {
		log.Printf("[worker] user created: uid=%s email=%s", ev.UID, ev.Email)
		profiles.OnIdentityCreated(ctx, services.IdentityEvent{
			UID:         ev.UID,
			Email:       ev.Email,
			DisplayName: ev.DisplayName,
			PhotoURL:    ev.PhotoURL,
		})
	}

	log.Printf("[worker] DONE: uid=%s", ev.UID)
	w.WriteHeader(http.StatusOK)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
