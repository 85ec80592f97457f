package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/linkup/backend/internal/config"
	"github.com/linkup/backend/internal/handlers"
	appMiddleware "github.com/linkup/backend/internal/middleware"
	"github.com/linkup/backend/internal/services"
	"github.com/linkup/backend/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	// Document store: Firestore in production, Mongo as the self-hosted
	// alternative, in-memory when neither is configured.
	var st store.Store
	switch {
	case cfg.FirebaseProjectID != "":
		fs, err := store.NewFirestoreStore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsJSON)
		if err != nil {
			log.Fatalf("Failed to initialize Firestore: %v", err)
		}
		defer fs.Close()
		st = fs
	case cfg.MongoURI != "":
		ms, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatalf("Failed to initialize MongoDB: %v", err)
		}
		defer ms.Close(ctx)
		st = ms
	default:
		log.Printf("Warning: no document store configured, using in-memory store")
		st = store.NewMemoryStore()
	}

	// Firebase Auth (server-side verification of ID tokens)
	authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
	})
	if err != nil {
		log.Printf("Warning: failed to initialize Firebase Auth client: %v", err)
	}

	var identity services.IdentitySource = services.NoopIdentitySource{}
	if authClient != nil {
		identity = services.NewFirebaseIdentitySource(authClient)
	}

	// Initialize services
	friendshipService := services.NewFriendshipService(st)
	profileService := services.NewProfileService(st, identity, friendshipService)
	searchService := services.NewSearchService(st)
	userService, err := services.NewUserService(cfg.DataDir, profileService)
	if err != nil {
		log.Fatalf("Failed to initialize user service: %v", err)
	}

	// Initialize handlers
	friendHandler := handlers.NewFriendHandler(friendshipService)
	profileHandler := handlers.NewProfileHandler(profileService, searchService)
	authHandler := handlers.NewAuthHandler(userService, cfg.JWTSecret, cfg.JWTExpiration)
	identityHandler := handlers.NewIdentityHandler(profileService)

	// Caller authentication: Firebase ID tokens when configured, locally
	// minted JWTs otherwise.
	authmw := appMiddleware.JWTAuth(cfg.JWTSecret)
	if authClient != nil {
		authmw = appMiddleware.FirebaseAuth(authClient)
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Local auth (dev mode)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authmw)

			r.Delete("/auth/account", authHandler.DeleteAccount)

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpdateProfile)
			r.Get("/users/search", profileHandler.SearchUsers)

			r.Route("/friends", func(r chi.Router) {
				r.Get("/", friendHandler.ListFriends)
				r.Delete("/{friendId}", friendHandler.RemoveFriend)

				r.Route("/requests", func(r chi.Router) {
					r.Get("/", friendHandler.ListReceivedRequests)
					r.Get("/sent", friendHandler.ListSentRequests)
					r.Post("/", friendHandler.SendRequest)
					r.Post("/{senderId}/accept", friendHandler.AcceptRequest)
					r.Post("/{senderId}/decline", friendHandler.DeclineRequest)
				})
			})
		})
	})

	// Identity lifecycle hooks from the auth platform
	r.Route("/internal/identity", func(r chi.Router) {
		r.Use(appMiddleware.InternalAuth(cfg.InternalHookToken))
		r.Post("/created", identityHandler.Created)
		r.Post("/deleted", identityHandler.Deleted)
	})

	log.Printf("🚀 Friends API server starting on %s", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
