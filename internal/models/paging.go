package models

// Paging is the cursor block returned with every list response.
// Before and After are opaque; they only make sense relative to the fetch that produced them.
type Paging struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
	Total  int    `json:"total"`
}

// ClassificationList is a list response of classifications
type ClassificationList struct {
	Data   []*Classification `json:"data"`
	Paging Paging            `json:"paging"`
}

// TagList is a page of tags
type TagList struct {
	Data   []*Tag `json:"data"`
	Paging Paging `json:"paging"`
}
