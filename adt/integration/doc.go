// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

/*
Package integration contains tests against a real ABAP application server.

The tests are run with the build tag integration:

	go test -tags integration ./adt/integration

If ADT_TEST_SERVER is set the tests use that server, otherwise a container of the
SAP ABAP Cloud Developer Trial image is started. Starting the container takes up to an
hour and needs at least 16 GB of memory.

Environment variables:

	ADT_TEST_SERVER    server url, e.g. http://vhcala4hci:50000
	ADT_TEST_USER      logon user (default DEVELOPER)
	ADT_TEST_PASSWORD  password of the logon user
	ADT_TEST_IMAGE     container image (default sapse/abap-cloud-developer-trial:2023)
	ADT_TEST_MEMORY    container memory limit (default 16g)
*/
package integration
