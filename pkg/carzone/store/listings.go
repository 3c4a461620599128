package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/moderation"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/query"
)

const listingColumns = `c.id, c.seller_id, c.maker, c.model, c.fuel_type, c.transmission, c.variant,
	c.year, c.km_driven, c.mileage, c.ownership, c.price, c.state, c.city, c.extra_features,
	c.status, c.created_at`

const listingWithImagesQuery = `
	SELECT ` + listingColumns + `,
		s.email AS seller_email,
		s.phone AS seller_phone,
		s.state AS seller_state,
		s.city AS seller_city,
		ci.id AS image_id,
		ci.image_data AS image_data
	FROM cars c
	JOIN sellers s ON c.seller_id = s.id
	LEFT JOIN car_images ci ON ci.car_id = c.id
	WHERE %s
	ORDER BY c.created_at DESC, c.id DESC, ci.id ASC`

// listingRow is one row of the listing/image join.
type listingRow struct {
	dal.Listing
	SellerEmail string        `db:"seller_email"`
	SellerPhone string        `db:"seller_phone"`
	SellerState string        `db:"seller_state"`
	SellerCity  string        `db:"seller_city"`
	ImageID     sql.NullInt64 `db:"image_id"`
	ImageData   []byte        `db:"image_data"`
}

// CreateSeller inserts a seller and returns its id.
func (s *Store) CreateSeller(ctx context.Context, seller *dal.Seller) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.createSeller(ctx, s.db, seller)
}

// CreateCar inserts a pending listing owned by sellerID and returns its id.
func (s *Store) CreateCar(ctx context.Context, sellerID int64, l *dal.Listing) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.createCar(ctx, s.db, sellerID, l)
}

// AttachImage stores an image for a listing.
func (s *Store) AttachImage(ctx context.Context, carID int64, data []byte) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return attachImage(ctx, s.db, carID, data)
}

// AttachDocument stores a document for a listing.
func (s *Store) AttachDocument(ctx context.Context, carID int64, docType dal.DocumentType, data []byte) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return attachDocument(ctx, s.db, carID, docType, data)
}

// CreateSubmission stores a seller, their pending listing, its images and
// documents atomically.
func (s *Store) CreateSubmission(ctx context.Context, sub dal.Submission) (dal.Listing, error) {
	if err := validateContext(ctx); err != nil {
		return dal.Listing{}, err
	}
	if err := validateSubmission(sub); err != nil {
		return dal.Listing{}, err
	}

	listing := sub.Listing
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		seller := sub.Seller
		sellerID, err := s.createSeller(ctx, tx, &seller)
		if err != nil {
			return err
		}
		if _, err := s.createCar(ctx, tx, sellerID, &listing); err != nil {
			return err
		}
		for _, data := range sub.Images {
			id, err := attachImage(ctx, tx, listing.ID, data)
			if err != nil {
				return err
			}
			listing.Images = append(listing.Images, dal.Image{ID: id, ListingID: listing.ID, Data: data})
		}
		for _, docType := range []dal.DocumentType{dal.DocumentRCBook, dal.DocumentInsurance} {
			if _, err := attachDocument(ctx, tx, listing.ID, docType, sub.Documents[docType]); err != nil {
				return err
			}
			listing.Documents = append(listing.Documents, docType)
		}
		listing.Seller = dal.SellerContact{Email: seller.Email, Phone: seller.Phone, State: seller.State, City: seller.City}
		return nil
	})
	if err != nil {
		return dal.Listing{}, err
	}

	slog.Debug("stored submission", "listing_id", listing.ID, "seller_id", listing.SellerID, "images", len(listing.Images))
	return listing, nil
}

func (s *Store) createSeller(ctx context.Context, db sqlx.ExtContext, seller *dal.Seller) (int64, error) {
	seller.CreatedAt = s.timestamp()
	res, err := sqlx.NamedExecContext(ctx, db, `
		INSERT INTO sellers (email, phone, state, city, created_at)
		VALUES (:email, :phone, :state, :city, :created_at)`, seller)
	if err != nil {
		return 0, fmt.Errorf("failed to insert seller: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read seller id: %w", err)
	}
	seller.ID = id
	return id, nil
}

func (s *Store) createCar(ctx context.Context, db sqlx.ExtContext, sellerID int64, l *dal.Listing) (int64, error) {
	l.SellerID = sellerID
	l.Status = dal.StatusPending
	l.CreatedAt = s.timestamp()
	res, err := sqlx.NamedExecContext(ctx, db, `
		INSERT INTO cars (seller_id, maker, model, fuel_type, transmission, variant, year, km_driven,
			mileage, ownership, price, state, city, extra_features, status, created_at)
		VALUES (:seller_id, :maker, :model, :fuel_type, :transmission, :variant, :year, :km_driven,
			:mileage, :ownership, :price, :state, :city, :extra_features, :status, :created_at)`, l)
	if err != nil {
		return 0, fmt.Errorf("failed to insert car: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read car id: %w", err)
	}
	l.ID = id
	return id, nil
}

func attachImage(ctx context.Context, db sqlx.ExecerContext, carID int64, data []byte) (int64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	res, err := db.ExecContext(ctx, `INSERT INTO car_images (car_id, image_data) VALUES (?, ?)`, carID, data)
	if err != nil {
		return 0, fmt.Errorf("failed to insert image: %w", err)
	}
	return res.LastInsertId()
}

func attachDocument(ctx context.Context, db sqlx.ExecerContext, carID int64, docType dal.DocumentType, data []byte) (int64, error) {
	if !docType.Valid() {
		return 0, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty %s document", ErrInvalidInput, docType)
	}
	res, err := db.ExecContext(ctx, `INSERT INTO documents (car_id, document_type, document_data) VALUES (?, ?, ?)`,
		carID, string(docType), data)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}
	return res.LastInsertId()
}

// FindListings returns approved listings matching criteria, newest first, with
// seller contact and images attached.
func (s *Store) FindListings(ctx context.Context, criteria query.FilterCriteria) ([]dal.Listing, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	where, args := query.Build(criteria).Where("c")
	listings, err := s.selectListings(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	slog.Debug("found listings", "criteria", criteria, "count", len(listings))
	return listings, nil
}

// GetListing returns a listing of any status with seller contact and images.
func (s *Store) GetListing(ctx context.Context, id int64) (dal.Listing, error) {
	if err := validateContext(ctx); err != nil {
		return dal.Listing{}, err
	}
	listings, err := s.selectListings(ctx, "c.id = ?", id)
	if err != nil {
		return dal.Listing{}, err
	}
	if len(listings) == 0 {
		return dal.Listing{}, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	return listings[0], nil
}

// PendingListings returns listings awaiting moderation, newest first, with the
// types of their uploaded documents.
func (s *Store) PendingListings(ctx context.Context) ([]dal.Listing, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	listings, err := s.selectListings(ctx, "c.status = ?", string(dal.StatusPending))
	if err != nil || len(listings) == 0 {
		return listings, err
	}

	ids := make([]int64, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	q, args, err := sqlx.In(`SELECT car_id, document_type FROM documents WHERE car_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build document query: %w", err)
	}
	var docs []dal.Document
	if err := s.db.SelectContext(ctx, &docs, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	index := make(map[int64]int, len(listings))
	for i, l := range listings {
		index[l.ID] = i
	}
	for _, d := range docs {
		i := index[d.ListingID]
		listings[i].Documents = append(listings[i].Documents, d.Type)
	}
	return listings, nil
}

// Document returns an uploaded document of a listing.
func (s *Store) Document(ctx context.Context, carID int64, docType dal.DocumentType) (dal.Document, error) {
	if err := validateContext(ctx); err != nil {
		return dal.Document{}, err
	}
	var doc dal.Document
	err := s.db.GetContext(ctx, &doc, `
		SELECT id, car_id, document_type, document_data
		FROM documents
		WHERE car_id = ? AND document_type = ?
		ORDER BY id DESC
		LIMIT 1`, carID, string(docType))
	if errors.Is(err, sql.ErrNoRows) {
		return dal.Document{}, fmt.Errorf("%s of listing %d: %w", docType, carID, ErrNotFound)
	}
	if err != nil {
		return dal.Document{}, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

// SetListingStatus moves a listing to target and returns the resulting status.
// The read and the write share one transaction, so concurrent moderators see
// each other's decisions.
func (s *Store) SetListingStatus(ctx context.Context, id int64, target dal.ListingStatus) (dal.ListingStatus, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	var next dal.ListingStatus
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current dal.ListingStatus
		err := tx.GetContext(ctx, &current, `SELECT status FROM cars WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("listing %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read listing status: %w", err)
		}

		next, err = moderation.NextListing(current, target)
		if err != nil {
			return err
		}
		if next == current {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cars SET status = ? WHERE id = ?`, string(next), id); err != nil {
			return fmt.Errorf("failed to update listing status: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Debug("listing status stored", "listing_id", id, "status", next)
	return next, nil
}

func (s *Store) selectListings(ctx context.Context, where string, args ...any) ([]dal.Listing, error) {
	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf(listingWithImagesQuery, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	listings := []dal.Listing{}
	index := make(map[int64]int)
	for rows.Next() {
		var row listingRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}

		i, ok := index[row.ID]
		if !ok {
			l := row.Listing
			l.Seller = dal.SellerContact{
				Email: row.SellerEmail,
				Phone: row.SellerPhone,
				State: row.SellerState,
				City:  row.SellerCity,
			}
			l.Images = []dal.Image{}
			listings = append(listings, l)
			i = len(listings) - 1
			index[row.ID] = i
		}
		if row.ImageID.Valid {
			listings[i].Images = append(listings[i].Images, dal.Image{
				ID:        row.ImageID.Int64,
				ListingID: row.ID,
				Data:      row.ImageData,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}
	return listings, nil
}
