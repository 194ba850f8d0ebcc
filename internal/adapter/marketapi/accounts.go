package marketapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/repository"
)

type accountDirectory struct {
	client *Client
}

func NewAccountDirectory(client *Client) repository.AccountDirectory {
	return &accountDirectory{client: client}
}

func (d *accountDirectory) CustomerByUserID(ctx context.Context, userID string) (*entity.Customer, error) {
	var out customerDTO
	query := url.Values{"user_id": []string{userID}}
	if err := d.client.do(ctx, "customer.lookup", http.MethodGet, "customer", query, nil, &out); err != nil {
		return nil, err
	}
	return &entity.Customer{
		CustomerID: out.CustomerID.String(),
		UserID:     out.UserID.String(),
		Email:      out.Email,
		CartID:     out.CartID.String(),
		Name:       out.Name,
	}, nil
}

func (d *accountDirectory) FarmerIDByUserID(ctx context.Context, userID string) (string, error) {
	var out farmerDTO
	query := url.Values{"user_id": []string{userID}}
	if err := d.client.do(ctx, "farmer.lookup", http.MethodGet, "farmer", query, nil, &out); err != nil {
		return "", err
	}
	return out.FarmerID.String(), nil
}
