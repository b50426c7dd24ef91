package category

// Group is one item group of the catalog with the number of products in it
// that are currently on sale.
type Group struct {
	Name     string `json:"itemGroup"`
	Products int    `json:"products"`
}
