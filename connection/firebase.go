package connection

import (
	"context"
	"fmt"

	"civicvoice/config"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Firebase holds the Google clients the API talks to. Storage and
// Messaging are nil when no bucket or topic is configured.
type Firebase struct {
	App       *firebase.App
	Firestore *firestore.Client
	Storage   *storage.Client
	Messaging *messaging.Client
}

func clientOptions(cfg *config.Config) []option.ClientOption {
	if cfg.FirebaseCredentials == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseCredentials)}
}

// FBConnection initialises the Firebase app and the clients cfg asks for.
func FBConnection(ctx context.Context, cfg *config.Config, withFirestore bool) (*Firebase, error) {
	opts := clientOptions(cfg)
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	fb := &Firebase{App: app}

	if withFirestore {
		fb.Firestore, err = app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
	}
	if cfg.StorageBucket != "" {
		fb.Storage, err = storage.NewClient(ctx, opts...)
		if err != nil {
			fb.Close()
			return nil, fmt.Errorf("storage client: %w", err)
		}
	}
	if cfg.NotifyTopic != "" {
		fb.Messaging, err = app.Messaging(ctx)
		if err != nil {
			fb.Close()
			return nil, fmt.Errorf("messaging client: %w", err)
		}
	}
	return fb, nil
}

// Close releases the storage client. Firestore is closed by its store.
func (f *Firebase) Close() {
	if f.Storage != nil {
		_ = f.Storage.Close()
	}
}
