// Package glpi provides a native Go client for the GLPI REST API.
//
// # Features
//
//   - Session handling with user-token or login/password credentials
//   - Transparent re-authentication when a session expires
//   - Typed errors carrying GLPI's [reason, message] pair
//   - Go iterators over paged item lists and searches
//   - Functional options for flexible configuration
//
// # Quick Start
//
//	client, err := glpi.NewClient(
//	    glpi.WithBaseURL("https://glpi.example.com/apirest.php"),
//	    glpi.WithAppToken(appToken),
//	    glpi.WithUserToken(userToken),
//	    glpi.WithRelogin(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session, err := client.InitSession(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.KillSession(ctx)
//
//	ticket, err := session.Items.Get(ctx, "Ticket", 42, nil)
//
// # Searching
//
// Search criteria are sent in GLPI's bracketed query form:
//
//	result, err := session.Items.Search(ctx, "Ticket", &glpi.SearchQuery{
//	    Criteria: []glpi.Criterion{
//	        {Field: 12, SearchType: "equals", Value: 1},
//	    },
//	    ForceDisplay: []int{1, 2},
//	})
//
//	// Or iterate over every matching row
//	for row, err := range session.Items.SearchAll(ctx, "Ticket", query) {
//	    // ...
//	}
//
// # Re-authentication
//
// With WithRelogin(true), a request answered with 401 triggers a new
// initSession using the original credentials, after which the request is
// replayed once. Only one login runs at a time per Session; other requests
// failing meanwhile wait three seconds and replay with whatever session is
// current by then. After three failed re-logins in a row each attempt is
// delayed linearly, up to one minute.
//
// # Error Handling
//
// The package uses typed errors that can be inspected with errors.As:
//
//	_, err := session.Items.Get(ctx, "Ticket", 999, nil)
//	var notFound *glpi.NotFoundError
//	if errors.As(err, &notFound) {
//	    // Handle not found
//	}
//
//	var apiErr *glpi.APIError
//	if errors.As(err, &apiErr) {
//	    fmt.Println(apiErr.Reason, apiErr.Message)
//	}
package glpi
