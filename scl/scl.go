// Package scl parses the subset of an IEC 61850 SCL/ICD/CID substation
// description this client needs: the DataSet/FCDA elements that let a
// decoded report's positional dataset entries be relabeled with their
// configured names instead of bare indexes.
package scl

import (
	"encoding/xml"
	"fmt"
	"os"
)

// sclDocument mirrors only the nesting this client reads out of an SCL
// file; every other element (Communication, DataTypeTemplates, Substation,
// ...) is left unparsed.
type sclDocument struct {
	XMLName xml.Name `xml:"SCL"`
	IED     []ied    `xml:"IED"`
}

type ied struct {
	Name        string        `xml:"name,attr"`
	AccessPoint []accessPoint `xml:"AccessPoint"`
}

type accessPoint struct {
	Server server `xml:"Server"`
}

type server struct {
	LDevice []ldevice `xml:"LDevice"`
}

type ldevice struct {
	Inst string `xml:"inst,attr"`
	LN0  *ln    `xml:"LN0"`
	LN   []ln   `xml:"LN"`
}

type ln struct {
	Prefix   string    `xml:"prefix,attr"`
	LnClass  string    `xml:"lnClass,attr"`
	Inst     string    `xml:"inst,attr"`
	DataSet  []dataSet `xml:"DataSet"`
}

type dataSet struct {
	Name string `xml:"name,attr"`
	FCDA []fcda `xml:"FCDA"`
}

type fcda struct {
	DoName string `xml:"doName,attr"`
	DaName string `xml:"daName,attr"`
}

// label renders an FCDA's dataset-member label: the data object name, or
// "doName.daName" when the FCDA names a specific data attribute.
func (f fcda) label() string {
	if f.DaName == "" {
		return f.DoName
	}
	return f.DoName + "." + f.DaName
}

// logicalNodeName joins an LN's prefix, class and instance the way SCL
// addresses it on the wire: "<prefix><lnClass><inst>", e.g. "RP" + "RCB" +
// "01" for a report's own LN is not this — this is the LN the DataSet is
// declared under, typically LLN0 for LN0 or "<prefix><lnClass><inst>" for LN.
func logicalNodeName(prefix, class, inst string) string {
	return prefix + class + inst
}

// Labels maps a dataset reference ("DOMAIN/LN$DS") to its member labels in
// declaration order.
type Labels map[string][]string

// Parse reads the SCL file at path and returns every DataSet it finds as a
// DOMAIN/LN$DS → ordered label list mapping. DOMAIN is "<IED name><LDevice
// inst>", matching how this client addresses domains over MMS.
func Parse(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scl: read %s: %w", path, err)
	}

	var doc sclDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scl: parse %s: %w", path, err)
	}

	labels := Labels{}
	for _, i := range doc.IED {
		for _, ap := range i.AccessPoint {
			for _, ld := range ap.Server.LDevice {
				domain := i.Name + ld.Inst
				if ld.LN0 != nil {
					addDataSets(labels, domain, "LLN0", ld.LN0.DataSet)
				}
				for _, n := range ld.LN {
					name := logicalNodeName(n.Prefix, n.LnClass, n.Inst)
					addDataSets(labels, domain, name, n.DataSet)
				}
			}
		}
	}
	return labels, nil
}

func addDataSets(labels Labels, domain, lnName string, sets []dataSet) {
	for _, ds := range sets {
		key := domain + "/" + lnName + "$" + ds.Name
		members := make([]string, len(ds.FCDA))
		for i, f := range ds.FCDA {
			members[i] = f.label()
		}
		if _, exists := labels[key]; !exists {
			labels[key] = members
		}
	}
}
