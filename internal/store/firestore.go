package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/Brownie44l1/cancer-api/internal/prediction"
)

// Firestore stores each record as a document whose body also carries its own
// document id in the "id" field.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(ctx context.Context, projectID, credentialsFile, collection string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Firestore{client: client, collection: collection}, nil
}

// Create lets Firestore pick the document id and writes it into the body in
// the same write.
func (f *Firestore) Create(ctx context.Context, rec prediction.Record) (prediction.Record, error) {
	ref := f.client.Collection(f.collection).NewDoc()
	rec.ID = ref.ID
	if _, err := ref.Create(ctx, rec); err != nil {
		return prediction.Record{}, fmt.Errorf("create %s/%s: %w", f.collection, ref.ID, err)
	}
	return rec, nil
}

func (f *Firestore) List(ctx context.Context) ([]prediction.Record, error) {
	docs, err := f.client.Collection(f.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", f.collection, err)
	}

	records := make([]prediction.Record, 0, len(docs))
	for _, doc := range docs {
		var rec prediction.Record
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", f.collection, doc.Ref.ID, err)
		}
		if rec.ID == "" {
			rec.ID = doc.Ref.ID
		}
		records = append(records, rec)
	}
	return records, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}
