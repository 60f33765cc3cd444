package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
)

// Service exposes the customer address book.
type Service interface {
	CreateAddress(ctx context.Context, input AddressInput) (*models.Address, error)
	UpdateAddress(ctx context.Context, id uuid.UUID, input AddressInput) (*models.Address, error)
	DeleteAddress(ctx context.Context, customerEmail string, id uuid.UUID) error
	ListAddresses(ctx context.Context, customerEmail string) ([]models.Address, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
}

// AddressInput is the validated payload for creating or replacing an address.
type AddressInput struct {
	CustomerEmail string
	Name          string
	Phone         string
	Line1         string
	Line2         *string
	City          string
	State         string
	PinCode       string
	IsDefault     bool
}

type service struct {
	repo *Repository
}

// NewService constructs an address service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

func normalize(input *AddressInput) error {
	input.CustomerEmail = strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Line1 = strings.TrimSpace(input.Line1)
	input.City = strings.TrimSpace(input.City)
	input.State = strings.TrimSpace(input.State)
	input.PinCode = strings.TrimSpace(input.PinCode)

	switch {
	case input.CustomerEmail == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	case input.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient name is required")
	case input.Line1 == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "address line is required")
	case input.City == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	case input.PinCode == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "pin code is required")
	}
	return nil
}

func (s *service) CreateAddress(ctx context.Context, input AddressInput) (*models.Address, error) {
	if err := normalize(&input); err != nil {
		return nil, err
	}
	address := &models.Address{
		CustomerEmail: input.CustomerEmail,
		Name:          input.Name,
		Phone:         input.Phone,
		Line1:         input.Line1,
		Line2:         input.Line2,
		City:          input.City,
		State:         input.State,
		PinCode:       input.PinCode,
		IsDefault:     input.IsDefault,
	}
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating address")
	}
	if address.IsDefault {
		if err := s.repo.ClearOtherDefaults(ctx, address.CustomerEmail, address.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating default address")
		}
	}
	return address, nil
}

func (s *service) UpdateAddress(ctx context.Context, id uuid.UUID, input AddressInput) (*models.Address, error) {
	if err := normalize(&input); err != nil {
		return nil, err
	}
	address, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if address.CustomerEmail != input.CustomerEmail {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address belongs to a different customer")
	}

	address.Name = input.Name
	address.Phone = input.Phone
	address.Line1 = input.Line1
	address.Line2 = input.Line2
	address.City = input.City
	address.State = input.State
	address.PinCode = input.PinCode
	address.IsDefault = input.IsDefault

	if err := s.repo.Update(ctx, address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating address")
	}
	if address.IsDefault {
		if err := s.repo.ClearOtherDefaults(ctx, address.CustomerEmail, address.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating default address")
		}
	}
	return address, nil
}

func (s *service) DeleteAddress(ctx context.Context, customerEmail string, id uuid.UUID) error {
	address, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if address.CustomerEmail != strings.ToLower(strings.TrimSpace(customerEmail)) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "address belongs to a different customer")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting address")
	}
	return nil
}

func (s *service) ListAddresses(ctx context.Context, customerEmail string) ([]models.Address, error) {
	email := strings.ToLower(strings.TrimSpace(customerEmail))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	addressList, err := s.repo.ListByCustomer(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing addresses")
	}
	return addressList, nil
}

func (s *service) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	return s.load(ctx, id)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	address, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading address")
	}
	return address, nil
}
