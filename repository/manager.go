package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Manager exposes all repositories
type Manager interface {
	repository.Validator
	repository.TransactionManager
	Profiles() repository.Repository[*ProfileModel]
	Organizations() repository.Repository[*OrganizationModel]
}

// NewProfilesRepository builds the profiles repository.
func NewProfilesRepository(db *bun.DB) repository.Repository[*ProfileModel] {
	handlers := repository.ModelHandlers[*ProfileModel]{
		NewRecord: func() *ProfileModel {
			return &ProfileModel{}
		},
		GetID: func(record *ProfileModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *ProfileModel, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "uid"
		},
	}
	return repository.NewRepository(db, handlers)
}

// NewOrganizationsRepository builds the organizations repository.
func NewOrganizationsRepository(db *bun.DB) repository.Repository[*OrganizationModel] {
	handlers := repository.ModelHandlers[*OrganizationModel]{
		NewRecord: func() *OrganizationModel {
			return &OrganizationModel{}
		},
		GetID: func(record *OrganizationModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *OrganizationModel, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "org_id"
		},
	}
	return repository.NewRepository(db, handlers)
}

type mngr struct {
	db            *bun.DB
	profiles      repository.Repository[*ProfileModel]
	organizations repository.Repository[*OrganizationModel]
}

// NewManager builds the repository manager.
func NewManager(db *bun.DB) Manager {
	return &mngr{
		db:            db,
		profiles:      NewProfilesRepository(db),
		organizations: NewOrganizationsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	if m.organizations == nil {
		return errors.New("repository organizations should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Profiles() repository.Repository[*ProfileModel] {
	return m.profiles
}

func (m mngr) Organizations() repository.Repository[*OrganizationModel] {
	return m.organizations
}
