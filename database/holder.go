package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

func (d Datasource) CreateHolder(ctx context.Context, holder *model.Holder) (*model.Holder, error) {
	var alias sql.NullString
	if holder.Alias != "" {
		alias = sql.NullString{String: holder.Alias, Valid: true}
	}
	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO bankcore.holders (alias, join_date)
		VALUES ($1, $2)
		RETURNING holder_id
	`, alias, holder.JoinDate).Scan(&holder.HolderID)
	if err != nil {
		return nil, mapError(err, "Failed to create holder")
	}
	return holder, nil
}

func (d Datasource) GetHolderByID(ctx context.Context, id int64) (*model.Holder, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT holder_id, alias, join_date
		FROM bankcore.holders
		WHERE holder_id = $1
	`, id)
	holder, err := scanHolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("holder", id)
	}
	if err != nil {
		return nil, mapError(err, "Failed to retrieve holder")
	}
	return holder, nil
}

// GetHolderByAlias reads through the alias cache when one is attached.
func (d Datasource) GetHolderByAlias(ctx context.Context, alias string) (*model.Holder, error) {
	if d.Cache != nil {
		cached := &model.Holder{}
		found, err := d.Cache.Get(ctx, aliasCacheKey(alias), cached)
		if err != nil {
			logrus.WithError(err).Warn("alias cache read failed")
		} else if found {
			return cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT holder_id, alias, join_date
		FROM bankcore.holders
		WHERE alias = $1
	`, alias)
	holder, err := scanHolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "No holder uses alias '"+alias+"'", nil)
	}
	if err != nil {
		return nil, mapError(err, "Failed to resolve alias")
	}

	if d.Cache != nil {
		if err := d.Cache.Set(ctx, aliasCacheKey(alias), holder, aliasCacheTTL); err != nil {
			logrus.WithError(err).Warn("alias cache write failed")
		}
	}
	return holder, nil
}

func (d Datasource) SetHolderAlias(ctx context.Context, holderID int64, alias string) error {
	var previous sql.NullString
	err := d.Conn.QueryRowContext(ctx, `
		UPDATE bankcore.holders h
		SET alias = $2
		FROM (SELECT holder_id, alias FROM bankcore.holders WHERE holder_id = $1 FOR UPDATE) old
		WHERE h.holder_id = old.holder_id
		RETURNING old.alias
	`, holderID, alias).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("holder", holderID)
	}
	if err != nil {
		return mapError(err, "Failed to set alias")
	}

	if d.Cache != nil {
		keys := []string{aliasCacheKey(alias)}
		if previous.Valid && previous.String != alias {
			keys = append(keys, aliasCacheKey(previous.String))
		}
		for _, key := range keys {
			if err := d.Cache.Delete(ctx, key); err != nil {
				logrus.WithError(err).Warn("alias cache invalidation failed")
			}
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHolder(row rowScanner) (*model.Holder, error) {
	holder := &model.Holder{}
	var alias sql.NullString
	if err := row.Scan(&holder.HolderID, &alias, &holder.JoinDate); err != nil {
		return nil, err
	}
	holder.Alias = alias.String
	return holder, nil
}
