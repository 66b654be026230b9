package commands

import (
	"galerts/internal/alerts"

	"github.com/spf13/pflag"
)

// monitorFlags are the flags shared by create and modify.
type monitorFlags struct {
	delivery  string
	match     string
	frequency string
	language  string
	region    string
	email     string
}

func (f *monitorFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.delivery, "delivery", "", "How results are delivered: rss or mail.")
	flags.StringVar(&f.match, "match", "", "Which results are delivered: all or best. (default best)")
	flags.StringVar(&f.frequency, "frequency", "", "How often mail is sent: as_it_happens, at_most_once_a_day or at_most_once_a_week. (default at_most_once_a_day)")
	flags.StringVar(&f.language, "language", "", "Language of the results. (default en)")
	flags.StringVar(&f.region, "region", "", "Region of the results. (default US)")
	flags.StringVar(&f.email, "email", "", "Address mail is delivered to. (default the account email)")
}

// options turns the flags into monitor options, flags left empty stay unset.
func (f *monitorFlags) options() (alerts.Options, error) {
	opts := alerts.Options{
		Language:     f.language,
		Region:       f.region,
		EmailAddress: f.email,
	}

	var err error
	if f.delivery != "" {
		opts.Delivery, err = alerts.ParseDelivery(f.delivery)
		if err != nil {
			return alerts.Options{}, err
		}
	}
	if f.match != "" {
		opts.MatchType, err = alerts.ParseMatchType(f.match)
		if err != nil {
			return alerts.Options{}, err
		}
	}
	if f.frequency != "" {
		opts.Frequency, err = alerts.ParseFrequency(f.frequency)
		if err != nil {
			return alerts.Options{}, err
		}
	}
	return opts, nil
}
