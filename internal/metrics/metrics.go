// Package metrics holds the Prometheus collectors for the campaign
// creation flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry *prometheus.Registry

	contactsImported  prometheus.Counter
	rowsRejected      prometheus.Counter
	importFailures    prometheus.Counter
	campaignsCreated  prometheus.Counter
	submitFailures    *prometheus.CounterVec
	referenceResolves *prometheus.CounterVec
	activeForms       prometheus.Gauge
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		contactsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_contacts_imported_total",
			Help: "Contacts accepted from uploaded spreadsheets",
		}),
		rowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_contact_rows_rejected_total",
			Help: "Spreadsheet rows dropped for a missing phone number or first name",
		}),
		importFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_contact_import_failures_total",
			Help: "Uploads that could not be decoded as a spreadsheet",
		}),
		campaignsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaigns_created_total",
			Help: "Campaigns persisted together with their contacts",
		}),
		submitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_submit_failures_total",
			Help: "Failed campaign submissions by stage",
		}, []string{"stage"}),
		referenceResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_reference_resolutions_total",
			Help: "Reference data resolutions by outcome",
		}, []string{"outcome"}),
		activeForms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campaign_forms_active",
			Help: "Campaign forms currently held in memory",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.contactsImported, m.rowsRejected, m.importFailures, m.campaignsCreated,
		m.submitFailures, m.referenceResolves, m.activeForms,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// All recorders are nil-safe so components can run without metrics.

func (m *Metrics) RecordImport(accepted, rejected int) {
	if m == nil {
		return
	}
	m.contactsImported.Add(float64(accepted))
	m.rowsRejected.Add(float64(rejected))
}

func (m *Metrics) RecordImportFailure() {
	if m == nil {
		return
	}
	m.importFailures.Inc()
}

func (m *Metrics) RecordCampaignCreated() {
	if m == nil {
		return
	}
	m.campaignsCreated.Inc()
}

func (m *Metrics) RecordSubmitFailure(stage string) {
	if m == nil {
		return
	}
	m.submitFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordResolution(outcome string) {
	if m == nil {
		return
	}
	m.referenceResolves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetActiveForms(n int) {
	if m == nil {
		return
	}
	m.activeForms.Set(float64(n))
}
