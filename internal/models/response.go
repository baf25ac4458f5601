package models

// ProductsResponse is the JSON envelope returned by the read API.
type ProductsResponse struct {
	Data       []Product  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type RunsResponse struct {
	Data []Run `json:"data"`
}

type Pagination struct {
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}
