package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/yitumuglobal/site-api/internal/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Ensure FirestoreCounter implements Counter
var _ Counter = (*FirestoreCounter)(nil)

// RateWindowDoc is one counter document; the document ID is the client key.
type RateWindowDoc struct {
	Count     int64     `firestore:"count"`
	ExpiresAt time.Time `firestore:"expires_at"`
}

// FirestoreCounter keeps counters in a Firestore collection, shared by every
// replica. Each increment runs in a transaction.
type FirestoreCounter struct {
	client     *firestore.Client
	collection string
	now        nowFunc
}

// NewFirestoreCounter connects to Firestore. An empty database or "(default)"
// selects the project's default database.
func NewFirestoreCounter(ctx context.Context, projectID, database, collection string) (*FirestoreCounter, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var client *firestore.Client
	var err error
	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	log.LogInfoWithFields("storage", "Firestore rate counter ready", map[string]any{
		"project":    projectID,
		"database":   database,
		"collection": collection,
	})

	return &FirestoreCounter{
		client:     client,
		collection: collection,
		now:        time.Now,
	}, nil
}

// Increment implements Counter
func (s *FirestoreCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}

	ref := s.client.Collection(s.collection).Doc(key)
	var count int64

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := s.now()

		doc, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to get counter: %w", err)
		}

		if err == nil {
			var current RateWindowDoc
			if err := doc.DataTo(&current); err != nil {
				return fmt.Errorf("failed to unmarshal counter: %w", err)
			}
			if now.Before(current.ExpiresAt) {
				count = current.Count + 1
				return tx.Update(ref, []firestore.Update{
					{Path: "count", Value: firestore.Increment(1)},
				})
			}
		}

		// No live window: start a new one
		count = 1
		return tx.Set(ref, RateWindowDoc{Count: 1, ExpiresAt: now.Add(window)})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	return count, nil
}

// PurgeExpired implements Counter
func (s *FirestoreCounter) PurgeExpired(ctx context.Context) (int, error) {
	iter := s.client.Collection(s.collection).
		Where("expires_at", "<=", s.now()).
		Documents(ctx)
	defer iter.Stop()

	removed := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("error iterating expired counters: %w", err)
		}

		if _, err := doc.Ref.Delete(ctx); err != nil {
			// Another replica may have restarted the window meanwhile; keep going
			log.LogWarnWithFields("storage", "Failed to delete expired counter", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		removed++
	}
	return removed, nil
}

// Close implements Counter
func (s *FirestoreCounter) Close() error {
	return s.client.Close()
}
