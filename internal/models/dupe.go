package models

import "fmt"

// Dupe is an arbitrage opportunity: buy BuyCount units from Offer and
// resell them to Demand for Equity profit.
type Dupe struct {
	Demand   *Trade
	Offer    *Trade
	BuyCount int64
	Equity   int64
}

// NewDupe pairs a demand with an offer. It does not touch either count.
func NewDupe(demand, offer *Trade) Dupe {
	buyCount := min(demand.Count, offer.Count)
	return Dupe{
		Demand:   demand,
		Offer:    offer,
		BuyCount: buyCount,
		Equity:   buyCount * (demand.Cost - offer.Cost),
	}
}

// RequiredCost is the money needed to buy the offered units.
func (d Dupe) RequiredCost() int64 {
	return d.BuyCount * d.Offer.Cost
}

// ID identifies the (seller, buyer) pair across snapshots.
func (d Dupe) ID() string {
	return d.Offer.ContentHash() + d.Demand.ContentHash()
}

// Message renders the dupe for terminal output.
func (d Dupe) Message() string {
	return fmt.Sprintf(
		"Dupe '%s', equity %d aden, required %d aden:\n\tbuy %d from \"%s\" (%s),\n\tsell to \"%s\" (%s)",
		d.Offer.ItemName(),
		d.Equity,
		d.RequiredCost(),
		d.BuyCount,
		d.Offer.OwnerName,
		d.Offer.City,
		d.Demand.OwnerName,
		d.Demand.City,
	)
}

// Party is one side of a dupe as shown to API clients.
type Party struct {
	Name string `json:"name"`
	City string `json:"city"`
	// Date is the listing creation time as unix seconds, 0 when unknown.
	Date int64 `json:"date"`
	// Hash is the listing content hash; clients send it back to ignore the listing.
	Hash string `json:"hash"`
}

// DupeView is the JSON shape of a dupe served by the API and published to Kafka.
type DupeView struct {
	ItemName     string  `json:"item_name"`
	Equity       int64   `json:"equity"`
	BuyCount     int64   `json:"buy_count"`
	RequiredCost int64   `json:"required_cost"`
	ImageURL     *string `json:"img_url"`
	Seller       Party   `json:"seller"`
	Buyer        Party   `json:"buyer"`
}

// NewDupeView builds the presentation object. imageURL is a printf template
// taking the catalog item id, e.g. "http://host/img/%d.png"; empty disables images.
func NewDupeView(d Dupe, imageURL string) DupeView {
	view := DupeView{
		ItemName:     d.Offer.ItemName(),
		Equity:       d.Equity,
		BuyCount:     d.BuyCount,
		RequiredCost: d.RequiredCost(),
		Seller:       newParty(d.Offer),
		Buyer:        newParty(d.Demand),
	}
	if imageURL != "" && d.Offer.ItemID != nil {
		url := fmt.Sprintf(imageURL, *d.Offer.ItemID)
		view.ImageURL = &url
	}
	return view
}

// NewDupeViews converts a dupe list, keeping order.
func NewDupeViews(dupes []Dupe, imageURL string) []DupeView {
	views := make([]DupeView, 0, len(dupes))
	for _, d := range dupes {
		views = append(views, NewDupeView(d, imageURL))
	}
	return views
}

func newParty(t *Trade) Party {
	p := Party{
		Name: t.OwnerName,
		City: t.City,
		Hash: t.ContentHash(),
	}
	if t.Date != nil {
		p.Date = t.Date.Unix()
	}
	return p
}
