// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package models

// DataSourceType identifies the backend family behind a data source.
type DataSourceType string

const (
	DataSourceDHIS2         DataSourceType = "DHIS2"
	DataSourceElasticsearch DataSourceType = "ELASTICSEARCH"
	DataSourceAPI           DataSourceType = "API"
)

// DataSource describes where an indicator's queries are sent.
//
// Exactly one data source per dashboard has IsCurrentDHIS2 set: the
// hosting instance, reached through the batching transport instead of
// external HTTP.
type DataSource struct {
	ID             string         `json:"id" validate:"required"`
	Type           DataSourceType `json:"type" validate:"required,oneof=DHIS2 ELASTICSEARCH API"`
	IsCurrentDHIS2 bool           `json:"isCurrentDHIS2,omitempty"`
	Authentication Authentication `json:"authentication"`
}

// Authentication holds external instance credentials. Password may be an
// "enc:" prefixed ciphertext produced by the credential encryptor.
type Authentication struct {
	URL      string `json:"url,omitempty" validate:"omitempty,url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// DataSources indexes data sources by id.
type DataSources map[string]DataSource

// NewDataSources builds an index from a list. Later entries win on duplicate ids.
func NewDataSources(list []DataSource) DataSources {
	out := make(DataSources, len(list))
	for _, ds := range list {
		out[ds.ID] = ds
	}
	return out
}

// Lookup returns the data source for id. An empty or unknown id resolves to
// the hosting instance.
func (d DataSources) Lookup(id string) DataSource {
	if ds, ok := d[id]; ok && id != "" {
		return ds
	}
	return DataSource{ID: id, Type: DataSourceDHIS2, IsCurrentDHIS2: true}
}
