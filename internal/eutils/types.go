package eutils

import "encoding/xml"

// eSearchResult is the esearch.fcgi response.
type eSearchResult struct {
	XMLName   xml.Name   `xml:"eSearchResult"`
	Count     int        `xml:"Count"`
	RetMax    int        `xml:"RetMax"`
	RetStart  int        `xml:"RetStart"`
	IDList    idList     `xml:"IdList"`
	QueryKey  string     `xml:"QueryKey"`
	WebEnv    string     `xml:"WebEnv"`
	ErrorList *errorList `xml:"ErrorList"`
	Error     string     `xml:"ERROR"`
}

type idList struct {
	IDs []string `xml:"Id"`
}

type errorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound"`
	FieldNotFound  []string `xml:"FieldNotFound"`
}

// eLinkResult is the elink.fcgi response.
type eLinkResult struct {
	XMLName  xml.Name  `xml:"eLinkResult"`
	LinkSets []linkSet `xml:"LinkSet"`
	Error    string    `xml:"ERROR"`
}

type linkSet struct {
	DbFrom     string      `xml:"DbFrom"`
	LinkSetDbs []linkSetDb `xml:"LinkSetDb"`
}

type linkSetDb struct {
	DbTo     string `xml:"DbTo"`
	LinkName string `xml:"LinkName"`
	Links    []link `xml:"Link"`
}

type link struct {
	ID string `xml:"Id"`
}

// idconvResponse is the PMC ID converter response:
//
//	<pmcids status="ok">
//	  <record requested-id="100" pmcid="PMC1" pmid="100" doi="..."/>
//	  <record requested-id="200" status="error" errmsg="invalid article id"/>
//	</pmcids>
type idconvResponse struct {
	XMLName xml.Name       `xml:"pmcids"`
	Status  string         `xml:"status,attr"`
	Records []idconvRecord `xml:"record"`
}

type idconvRecord struct {
	RequestedID string `xml:"requested-id,attr"`
	PMCID       string `xml:"pmcid,attr"`
	PMID        string `xml:"pmid,attr"`
	Status      string `xml:"status,attr"`
	ErrMsg      string `xml:"errmsg,attr"`
}
