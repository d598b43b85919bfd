package models

// Requests for series HTTP endpoints. Defined in domain for consistency and reuse.

type SeriesRequest struct {
	Granularity string `param:"granularity" json:"granularity" validate:"required,oneof=hourly daily"`
	Window      string `query:"window" json:"window" default:"1d" validate:"oneof=1d 5d 7d 30d 180d 365d all custom"`
	From        string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Quantity    string `query:"quantity" json:"quantity" default:"price" validate:"oneof=price bids volumes"`
	Source      string `query:"source" json:"source" validate:"omitempty,oneof=remote flatfile"`
	Stats       string `query:"stats" json:"stats" default:"all" validate:"oneof=all real"`
	Session     string `query:"session" json:"session" validate:"omitempty,max=128"`
}

type ViewRequest struct {
	Granularity string `query:"granularity" json:"granularity" default:"hourly" validate:"oneof=hourly daily"`
	Window      string `query:"window" json:"window" default:"1d" validate:"oneof=1d 5d 7d 30d 180d 365d all custom"`
	From        string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Quantities  string `query:"quantities" json:"quantities" default:"price,bids"`
	Source      string `query:"source" json:"source" validate:"omitempty,oneof=remote flatfile"`
	Stats       string `query:"stats" json:"stats" default:"all" validate:"oneof=all real"`
	Session     string `query:"session" json:"session" validate:"omitempty,max=128"`
	RequestID   string `query:"request_id" json:"requestId" validate:"omitempty,max=64"`
}

// ViewFrame is pushed over the live view websocket.
type ViewFrame struct {
	RequestID string              `json:"requestId"`
	Loading   bool                `json:"loading"`
	Views     map[Quantity]Output `json:"views,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
