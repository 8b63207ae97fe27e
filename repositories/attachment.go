package repositories

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
)

// AttachmentRepository stores attachment metadata and raw content under
// separate keys so metadata reads never load the blob.
type AttachmentRepository struct {
	db *badger.DB
}

func NewAttachmentRepository(db *badger.DB) AttachmentRepository {
	return AttachmentRepository{db: db}
}

// SaveAttachment persists the blob and its metadata and returns the
// generated attachment id.
func (r AttachmentRepository) SaveAttachment(data []byte, meta domain.Attachment) (string, error) {
	meta.ID = uuid.NewString()
	meta.Size = len(data)
	meta.CreatedAt = time.Now().UTC()

	encoded, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte("att:meta:"+meta.ID), encoded); err != nil {
			return err
		}
		return txn.Set([]byte("att:data:"+meta.ID), data)
	})
	if err != nil {
		return "", err
	}
	return meta.ID, nil
}

func (r AttachmentRepository) GetAttachment(id string) (domain.Attachment, []byte, error) {
	var meta domain.Attachment
	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("att:meta:" + id))
		if err != nil {
			return mapKeyErr(err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}

		item, err = txn.Get([]byte("att:data:" + id))
		if err != nil {
			return mapKeyErr(err)
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return domain.Attachment{}, nil, err
	}
	return meta, data, nil
}
