// Package handlers implements the control API endpoints.
//
// Registry routes answer JSON. Failures always carry {"error": "<message>"}
// and successful mutations carry {"message": "<message>"}:
//
//   - GET    /clients                      200 list of clients
//   - PUT    /client                       201 | 400 invalid request, client already exists
//   - DELETE /client/{id}                  200 | 400 invalid client_id
//   - GET    /client/{id}/config           200 text/plain | 400 invalid client_id
//   - PUT    /client/{id}/proxy            201 | 400 invalid request, invalid client_id, duplicate name
//   - DELETE /client/{id}/proxy/{name}     200 | 400 invalid client_id | 404 proxy not found
//   - GET    /status                       200 supervisor and registry summary
//
// A mutation that cannot be persisted is rolled back by the registry and
// reported as 500.
package handlers
