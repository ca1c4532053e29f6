package web

import (
	"voucherdesk/internal/voucher"
	"voucherdesk/pkg/formdef"
)

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type fieldView struct {
	Name        string
	Label       string
	Type        string
	Placeholder string
	Value       string
	Select      bool
	Options     []optionView
}

type pageView struct {
	Title           string
	Subtitle        string
	Fields          []fieldView
	SubmitLabel     string
	SubmittingLabel string
	Submitting      bool
	ErrorMessage    string
	SeatsHeading    string
	Seats           []string
}

// newPageView lays a snapshot over the form definition. The error panel only
// renders when ErrorMessage is non-empty, the seat list only when Seats is.
func newPageView(def *formdef.Definition, state voucher.UIState) pageView {
	view := pageView{
		Title:           def.Title,
		Subtitle:        def.Subtitle,
		SubmitLabel:     def.SubmitLabel,
		SubmittingLabel: def.SubmittingLabel,
		Submitting:      state.IsSubmitting,
		ErrorMessage:    state.ErrorMessage,
		SeatsHeading:    def.SeatsHeading,
		Seats:           state.AssignedSeats,
	}

	for _, f := range def.Fields {
		fv := fieldView{
			Name:        f.Name,
			Label:       f.Label,
			Type:        f.Type,
			Placeholder: f.Placeholder,
			Value:       voucher.FieldValue(state.Form, f.Name),
			Select:      f.IsSelect(),
		}
		if fv.Select {
			fv.Options = selectOptions(f.Options, fv.Value)
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

// selectOptions marks the current value. A value outside the configured
// options is kept as an extra option so the form shows what will be sent.
func selectOptions(options []formdef.Option, current string) []optionView {
	out := make([]optionView, 0, len(options)+1)
	found := false
	for _, opt := range options {
		selected := opt.Value == current
		found = found || selected
		out = append(out, optionView{Value: opt.Value, Label: opt.Label, Selected: selected})
	}
	if !found && current != "" {
		out = append(out, optionView{Value: current, Label: current, Selected: true})
	}
	return out
}
