package application

import "github.com/sweetshop/inventory-api/internal/domain"

// ToSweetDTO converts a domain Sweet to its DTO
func ToSweetDTO(sweet *domain.Sweet) *SweetDTO {
	if sweet == nil {
		return nil
	}

	return &SweetDTO{
		ID:        sweet.ID.Hex(),
		Name:      sweet.Name,
		Category:  sweet.Category,
		Price:     sweet.Price,
		Quantity:  sweet.Quantity,
		InStock:   sweet.Quantity > 0,
		CreatedAt: sweet.CreatedAt,
		UpdatedAt: sweet.UpdatedAt,
	}
}

// ToSweetDTOs converts a slice of domain Sweets to DTOs
func ToSweetDTOs(sweets []*domain.Sweet) []SweetDTO {
	dtos := make([]SweetDTO, 0, len(sweets))
	for _, sweet := range sweets {
		dtos = append(dtos, *ToSweetDTO(sweet))
	}
	return dtos
}

// ToUserDTO converts a domain User to its DTO
func ToUserDTO(user *domain.User) *UserDTO {
	if user == nil {
		return nil
	}

	return &UserDTO{
		ID:        user.ID.Hex(),
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
}
