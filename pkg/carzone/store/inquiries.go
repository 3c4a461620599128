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
)

// CreateInquiry records a buyer inquiry against an approved listing.
func (s *Store) CreateInquiry(ctx context.Context, inq *dal.Inquiry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInquiry(inq); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var status dal.ListingStatus
		err := tx.GetContext(ctx, &status, `SELECT status FROM cars WHERE id = ?`, inq.ListingID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && status != dal.StatusApproved) {
			return fmt.Errorf("listing %d: %w", inq.ListingID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read listing: %w", err)
		}

		inq.Status = dal.InquiryNew
		inq.CreatedAt = s.timestamp()
		res, err := tx.NamedExecContext(ctx, `
			INSERT INTO buyer_inquiries (car_id, name, email, phone, message, status, created_at)
			VALUES (:car_id, :name, :email, :phone, :message, :status, :created_at)`, inq)
		if err != nil {
			return fmt.Errorf("failed to insert inquiry: %w", err)
		}
		inq.ID, err = res.LastInsertId()
		return err
	})
}

// Inquiries returns every inquiry with its listing and seller email, newest
// first.
func (s *Store) Inquiries(ctx context.Context) ([]dal.Inquiry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	inquiries := []dal.Inquiry{}
	err := s.db.SelectContext(ctx, &inquiries, `
		SELECT bi.id, bi.car_id, bi.name, bi.email, bi.phone, bi.message, bi.status, bi.created_at,
			c.maker, c.model, c.price, s.email AS seller_email
		FROM buyer_inquiries bi
		JOIN cars c ON bi.car_id = c.id
		JOIN sellers s ON c.seller_id = s.id
		ORDER BY bi.created_at DESC, bi.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}
	return inquiries, nil
}

// MarkInquiryContacted flags an inquiry as followed up.
func (s *Store) MarkInquiryContacted(ctx context.Context, id int64) (dal.InquiryStatus, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	var next dal.InquiryStatus
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current dal.InquiryStatus
		err := tx.GetContext(ctx, &current, `SELECT status FROM buyer_inquiries WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("inquiry %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read inquiry status: %w", err)
		}

		next, err = moderation.NextInquiry(current, dal.InquiryContacted)
		if err != nil || next == current {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE buyer_inquiries SET status = ? WHERE id = ?`, string(next), id)
		return err
	})
	if err != nil {
		return "", err
	}

	slog.Info("inquiry updated", "inquiry_id", id, "status", next)
	return next, nil
}

// Summary returns the admin dashboard counters.
func (s *Store) Summary(ctx context.Context) (dal.Summary, error) {
	if err := validateContext(ctx); err != nil {
		return dal.Summary{}, err
	}
	var sum dal.Summary
	err := s.db.GetContext(ctx, &sum, `
		SELECT
			(SELECT COUNT(*) FROM cars WHERE status = 'pending') AS pending_listings,
			(SELECT COUNT(*) FROM buyer_inquiries WHERE status = 'new') AS new_inquiries`)
	if err != nil {
		return dal.Summary{}, fmt.Errorf("failed to count pending work: %w", err)
	}
	return sum, nil
}
