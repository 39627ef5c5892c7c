package cart

// UpdateProductAmount is the input of Store.UpdateProductAmount
type UpdateProductAmount struct {
	ProductID int `json:"productId"`
	Amount    int `json:"amount"`
}
