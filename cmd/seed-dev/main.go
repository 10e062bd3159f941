// seed-dev creates the clinic tables for a development database.
// Idempotent: every statement is CREATE TABLE IF NOT EXISTS.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-dev
package main

import (
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS hr_employees (
		id INT AUTO_INCREMENT PRIMARY KEY,
		empId VARCHAR(50),
		fullName VARCHAR(255),
		position VARCHAR(100),
		phone VARCHAR(50),
		startDate DATE,
		salary DECIMAL(20,2) DEFAULT 0,
		CreateDate DATETIME,
		UpdateDate DATETIME,
		CreateBy VARCHAR(100),
		UpdateBy VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS hr_attendance (
		id INT AUTO_INCREMENT PRIMARY KEY,
		empId VARCHAR(50),
		fullName VARCHAR(255),
		position VARCHAR(100),
		date DATE,
		leaveType VARCHAR(50),
		status VARCHAR(50),
		note TEXT,
		CreateDate DATETIME,
		UpdateDate DATETIME,
		CreateBy VARCHAR(100),
		UpdateBy VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS hr_timeclock (
		id INT AUTO_INCREMENT PRIMARY KEY,
		empId VARCHAR(50),
		date DATE,
		inAt VARCHAR(40),
		outAt VARCHAR(40),
		hours DECIMAL(10,2) DEFAULT 0,
		note TEXT,
		geo VARCHAR(255),
		CreateDate DATETIME,
		UpdateDate DATETIME,
		CreateBy VARCHAR(100),
		UpdateBy VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS sales_customers (
		id INT AUTO_INCREMENT PRIMARY KEY,
		code VARCHAR(50),
		firstName VARCHAR(100),
		lastName VARCHAR(100),
		nationalId VARCHAR(50),
		age INT DEFAULT 0,
		phone VARCHAR(50),
		address TEXT,
		creditDays INT DEFAULT 0,
		creditLimit DECIMAL(20,2) DEFAULT 0,
		paymentType VARCHAR(20) DEFAULT 'cash',
		CreateDate DATETIME,
		UpdateDate DATETIME,
		CreateBy VARCHAR(100),
		UpdateBy VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS sales_quotations (
		id INT AUTO_INCREMENT PRIMARY KEY,
		qNo VARCHAR(50) NOT NULL,
		qDate DATE,
		status VARCHAR(20) NOT NULL DEFAULT 'Draft',
		customerCode VARCHAR(50),
		customerFirstName VARCHAR(100),
		customerLastName VARCHAR(100),
		customerNationalId VARCHAR(50),
		customerAge INT DEFAULT 0,
		totalBeforeDiscount DECIMAL(20,4) DEFAULT 0,
		discount DECIMAL(20,4) DEFAULT 0,
		grandTotal DECIMAL(20,4) DEFAULT 0,
		note TEXT,
		CreateDate DATETIME,
		UpdateDate DATETIME,
		CreateBy VARCHAR(100),
		UpdateBy VARCHAR(100),
		UNIQUE KEY uq_sales_quotations_qno (qNo)
	)`,
	`CREATE TABLE IF NOT EXISTS sales_quotationitems (
		id INT AUTO_INCREMENT PRIMARY KEY,
		qNo VARCHAR(50) NOT NULL,
		itemCode VARCHAR(100),
		itemName VARCHAR(255),
		qty DECIMAL(20,4) DEFAULT 0,
		unitPrice DECIMAL(20,4) DEFAULT 0,
		lineTotal DECIMAL(20,4) DEFAULT 0,
		CreateDate DATETIME,
		KEY idx_sales_quotationitems_qno (qNo)
	)`,
	`CREATE TABLE IF NOT EXISTS sales_saleorders (
		id INT AUTO_INCREMENT PRIMARY KEY,
		soNo VARCHAR(50) NOT NULL,
		soDate DATE,
		status VARCHAR(20) NOT NULL DEFAULT 'Open',
		customerCode VARCHAR(50),
		billTo VARCHAR(255),
		shipTo VARCHAR(255),
		paymentTerm VARCHAR(100),
		totalBeforeDiscount DECIMAL(20,4) DEFAULT 0,
		discount DECIMAL(20,4) DEFAULT 0,
		grandTotal DECIMAL(20,4) DEFAULT 0,
		note TEXT,
		deliveryDate DATE,
		dueDate DATE,
		paymentType VARCHAR(20) DEFAULT 'FULL',
		depositAmount DECIMAL(20,4) DEFAULT 0,
		depositPercent DECIMAL(10,4),
		installmentCount INT,
		totalPaid DECIMAL(20,4) DEFAULT 0,
		balance DECIMAL(20,4) DEFAULT 0,
		paymentPlan TEXT,
		refQuotationNo VARCHAR(50),
		CreateDate DATETIME,
		UpdateDate DATETIME,
		CreateBy VARCHAR(100),
		UpdateBy VARCHAR(100),
		UNIQUE KEY uq_sales_saleorders_sono (soNo)
	)`,
	`CREATE TABLE IF NOT EXISTS sales_saleorderitems (
		id INT AUTO_INCREMENT PRIMARY KEY,
		soNo VARCHAR(50) NOT NULL,
		itemCode VARCHAR(100),
		itemName VARCHAR(255),
		qty DECIMAL(20,4) DEFAULT 0,
		uom VARCHAR(50),
		unitPrice DECIMAL(20,4) DEFAULT 0,
		lineTotal DECIMAL(20,4) DEFAULT 0,
		remark VARCHAR(255),
		CreateDate DATETIME,
		KEY idx_sales_saleorderitems_sono (soNo)
	)`,
}

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			fmt.Fprintf(os.Stderr, "seed-dev: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Println("seed-dev: clinic tables ready")
}
