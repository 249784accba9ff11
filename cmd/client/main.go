// Interactive shell for the CaféYa order API. The logged-in user travels as
// an explicit session value through every action; there is no package-level
// session state.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type session struct {
	UserID int64
	Name   string
	Role   string
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) sendJSON(method, path string, body any) (int, map[string]any, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out, nil
}

func (c *apiClient) postJSON(path string, body any) (int, map[string]any, error) {
	return c.sendJSON(http.MethodPost, path, body)
}

func (c *apiClient) getJSON(path string, out any) (int, error) {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

func (c *apiClient) download(path, filename string) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, resp.Body)
	return err
}

type shell struct {
	api *apiClient
	in  *bufio.Scanner
}

func (s *shell) prompt(label string) string {
	fmt.Print(label)
	if !s.in.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(s.in.Text())
}

func (s *shell) promptInt(label string) (int64, bool) {
	v, err := strconv.ParseInt(s.prompt(label), 10, 64)
	if err != nil {
		fmt.Println("invalid number")
		return 0, false
	}
	return v, true
}

func (s *shell) register() (session, bool) {
	name := s.prompt("User name: ")
	role := strings.ToLower(s.prompt("Role (customer/vendor): "))
	code, body, err := s.api.postJSON("/users", map[string]any{"name": name, "role": role})
	if err != nil {
		fmt.Println("connection error:", err)
		return session{}, false
	}
	if code != http.StatusOK {
		fmt.Println("error:", body["error"])
		return session{}, false
	}
	id := int64(body["user_id"].(float64))
	fmt.Printf("registered as %s with id %d\n", role, id)
	return session{UserID: id, Name: name, Role: role}, true
}

func (s *shell) login() (session, bool) {
	name := s.prompt("User name: ")
	code, body, err := s.api.postJSON("/login", map[string]any{"name": name})
	if err != nil {
		fmt.Println("connection error:", err)
		return session{}, false
	}
	if code != http.StatusOK {
		fmt.Println("error:", body["error"])
		return session{}, false
	}
	id := int64(body["user_id"].(float64))
	role, _ := body["role"].(string)
	fmt.Printf("logged in as %s (id %d)\n", role, id)
	return session{UserID: id, Name: name, Role: role}, true
}

func (s *shell) listProducts() {
	var products []map[string]any
	code, err := s.api.getJSON("/products", &products)
	if err != nil || code != http.StatusOK {
		fmt.Println("could not list products")
		return
	}
	if len(products) == 0 {
		fmt.Println("no products available right now")
		return
	}
	fmt.Println("\nAvailable products:")
	for _, p := range products {
		fmt.Printf("  [%v] %v  $%v  stock=%v  pickup=%v  (%v)\n",
			p["id"], p["name"], p["price"], p["stock"], p["pickup_window"], p["category"])
	}
}

func (s *shell) placeOrder(sess session) {
	s.listProducts()
	productID, ok := s.promptInt("Product id: ")
	if !ok {
		return
	}
	pickup := s.prompt("Pickup time (e.g. 10:30): ")
	qty, ok := s.promptInt("Quantity: ")
	if !ok {
		return
	}
	code, body, err := s.api.postJSON("/orders", map[string]any{
		"customer_id": sess.UserID,
		"product_id":  productID,
		"pickup_time": pickup,
		"quantity":    qty,
	})
	if err != nil {
		fmt.Println("connection error:", err)
		return
	}
	if code != http.StatusCreated {
		fmt.Println("error:", body["error"])
		return
	}
	fmt.Printf("order %v placed, %v left in stock\n", body["order_id"], body["remaining_stock"])
}

func (s *shell) customerOrders(sess session) {
	var rows []map[string]any
	code, err := s.api.getJSON(fmt.Sprintf("/customers/%d/orders", sess.UserID), &rows)
	if err != nil || code != http.StatusOK {
		fmt.Println("could not fetch orders")
		return
	}
	if len(rows) == 0 {
		fmt.Println("you have no orders")
		return
	}
	fmt.Printf("\nOrders for %s:\n", sess.Name)
	for _, r := range rows {
		fmt.Printf("  #%v %v x%v @ $%v [%v] pickup %v from %v\n",
			r["id"], r["product"], r["quantity"], r["unit_price"], r["state"], r["pickup_time"], r["vendor"])
	}
}

func (s *shell) vendorOrders(sess session) {
	var rows []map[string]any
	code, err := s.api.getJSON(fmt.Sprintf("/vendors/%d/orders", sess.UserID), &rows)
	if err != nil || code != http.StatusOK {
		fmt.Println("could not fetch orders")
		return
	}
	if len(rows) == 0 {
		fmt.Println("no orders for your products")
		return
	}
	fmt.Printf("\nOrders for %s:\n", sess.Name)
	for _, r := range rows {
		fmt.Printf("  #%v %v ordered %v x%v @ $%v [%v] pickup %v\n",
			r["id"], r["customer"], r["product"], r["quantity"], r["unit_price"], r["state"], r["pickup_time"])
	}
}

func (s *shell) addProduct(sess session) {
	name := s.prompt("Product name: ")
	price := s.prompt("Price: ")
	stock, ok := s.promptInt("Stock: ")
	if !ok {
		return
	}
	window := s.prompt("Pickup window (e.g. 08:00-12:00): ")
	category := s.prompt("Category (empty for Bebida): ")
	priceNum, err := strconv.ParseFloat(price, 64)
	if err != nil {
		fmt.Println("invalid price")
		return
	}
	code, body, err := s.api.postJSON("/products", map[string]any{
		"name":          name,
		"price":         priceNum,
		"stock":         stock,
		"pickup_window": window,
		"owner_id":      sess.UserID,
		"category":      category,
	})
	if err != nil {
		fmt.Println("connection error:", err)
		return
	}
	if code != http.StatusCreated {
		fmt.Println("error:", body["error"])
		return
	}
	fmt.Printf("product %v created (%v)\n", body["product_id"], body["category"])
}

func (s *shell) updateOrderState(sess session) {
	orderID, ok := s.promptInt("Order id: ")
	if !ok {
		return
	}
	state := strings.ToLower(s.prompt("New state (pending/completed/cancelled): "))
	code, body, err := s.api.sendJSON(http.MethodPut, fmt.Sprintf("/orders/%d/state", orderID), map[string]any{
		"state":     state,
		"vendor_id": sess.UserID,
	})
	if err != nil {
		fmt.Println("connection error:", err)
		return
	}
	if code != http.StatusOK {
		fmt.Println("error:", body["error"])
		return
	}
	fmt.Println("order state updated")
}

func (s *shell) weather() {
	var rec map[string]any
	code, err := s.api.getJSON("/weather", &rec)
	if err != nil || code != http.StatusOK {
		fmt.Println("weather lookup failed")
		return
	}
	fmt.Printf("current temperature: %v°C, suggestion: %v\n", rec["temperature"], rec["recommendation"])
}

func (s *shell) customerMenu(sess session) {
	for {
		fmt.Printf("\n-- %s (customer) --\n", sess.Name)
		fmt.Println("1) list products  2) place order  3) my orders  4) export CSV  5) weather tip  0) logout")
		switch s.prompt("> ") {
		case "1":
			s.listProducts()
		case "2":
			s.placeOrder(sess)
		case "3":
			s.customerOrders(sess)
		case "4":
			file := fmt.Sprintf("pedidos_cliente_%d.csv", sess.UserID)
			if err := s.api.download(fmt.Sprintf("/customers/%d/orders.csv", sess.UserID), file); err != nil {
				fmt.Println("export failed:", err)
			} else {
				fmt.Println("saved", file)
			}
		case "5":
			s.weather()
		case "0":
			return
		}
	}
}

func (s *shell) vendorMenu(sess session) {
	for {
		fmt.Printf("\n-- %s (vendor) --\n", sess.Name)
		fmt.Println("1) add product  2) orders on my products  3) update order state  4) sales CSV  5) orders chart  0) logout")
		switch s.prompt("> ") {
		case "1":
			s.addProduct(sess)
		case "2":
			s.vendorOrders(sess)
		case "3":
			s.updateOrderState(sess)
		case "4":
			file := fmt.Sprintf("ventas_cafeteria_%d.csv", sess.UserID)
			if err := s.api.download(fmt.Sprintf("/vendors/%d/sales.csv", sess.UserID), file); err != nil {
				fmt.Println("export failed:", err)
			} else {
				fmt.Println("saved", file)
			}
		case "5":
			file := fmt.Sprintf("grafico_pedidos_cafeteria_%d.png", sess.UserID)
			if err := s.api.download(fmt.Sprintf("/vendors/%d/chart", sess.UserID), file); err != nil {
				fmt.Println("chart failed:", err)
			} else {
				fmt.Println("saved", file)
			}
		case "0":
			return
		}
	}
}

func main() {
	base := os.Getenv("CAFEYA_API_URL")
	if base == "" {
		base = "http://127.0.0.1:8080"
	}
	s := &shell{api: newAPIClient(base), in: bufio.NewScanner(os.Stdin)}

	fmt.Println("CaféYa: cafeteria marketplace")
	for {
		fmt.Println("\n1) register  2) login  0) quit")
		switch s.prompt("> ") {
		case "1":
			if sess, ok := s.register(); ok {
				s.runFor(sess)
			}
		case "2":
			if sess, ok := s.login(); ok {
				s.runFor(sess)
			}
		case "0":
			return
		}
	}
}

func (s *shell) runFor(sess session) {
	if sess.Role == "vendor" {
		s.vendorMenu(sess)
		return
	}
	s.customerMenu(sess)
}
