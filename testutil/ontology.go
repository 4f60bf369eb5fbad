package testutil

import (
	"testing"

	"ontosim/internal/schema"
)

// OfficeOntologyYAML is the schema shared by store, service and CLI tests.
//
// Employee.manager is a ONE side backed by the managerId foreign key and
// reciprocated by the MANY side Employee.reports. Asset.owner works the same
// way over ownerId. Employee.mentor/mentee is ONE-ONE without a foreign key,
// Employee.offices/Office.occupants is MANY-MANY.
const OfficeOntologyYAML = `
objectTypes:
  Employee:
    primaryKey: employeeId
    titleProperty: fullName
    properties:
      employeeId: integer
      fullName: string
      managerId: integer
      department: string
      startDate: date
      salary: double
      badge: attachment
      performance: timeseries
  Asset:
    primaryKey: assetId
    titleProperty: name
    properties:
      assetId: string
      name: string
      ownerId: integer
      thumbnail: mediaReference
  Office:
    primaryKey: officeId
    properties:
      officeId: string
      city: {type: string, description: City the office is in}
links:
  - a: {objectType: Employee, apiName: manager, cardinality: ONE, foreignKey: managerId}
    b: {objectType: Employee, apiName: reports, cardinality: MANY}
  - a: {objectType: Asset, apiName: owner, cardinality: ONE, foreignKey: ownerId}
    b: {objectType: Employee, apiName: assets, cardinality: MANY}
  - a: {objectType: Employee, apiName: mentor, cardinality: ONE}
    b: {objectType: Employee, apiName: mentee, cardinality: ONE}
  - a: {objectType: Employee, apiName: offices, cardinality: MANY}
    b: {objectType: Office, apiName: occupants, cardinality: MANY}
actionTypes:
  hireEmployee:
    description: Registers a new employee.
    modifiedEntities: [Employee]
    parameters:
      - {apiName: employeeId, type: integer, required: true}
      - {apiName: fullName, type: string, required: true}
      - {apiName: department, type: string, oneOf: [engineering, sales]}
      - {apiName: startDate, type: date}
      - {apiName: manager, type: object, objectType: Employee}
  assignManager:
    modifiedEntities: [Employee]
    parameters:
      - {apiName: employee, type: object, objectType: Employee, required: true}
      - {apiName: manager, type: object, objectType: Employee, required: true}
  terminateEmployee:
    modifiedEntities: [Employee]
    parameters:
      - {apiName: employee, type: object, objectType: Employee, required: true}
  tagAssets:
    modifiedEntities: [Asset]
    parameters:
      - {apiName: assets, type: array, itemType: object, objectType: Asset, required: true}
      - {apiName: label, type: string}
`

// OfficeOntology parses OfficeOntologyYAML, failing the test on error.
func OfficeOntology(t testing.TB) *schema.StaticOntology {
	t.Helper()
	o, err := schema.Parse([]byte(OfficeOntologyYAML))
	if err != nil {
		t.Fatalf("parse office ontology: %v", err)
	}
	return o
}
